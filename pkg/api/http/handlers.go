package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/internal/application/session"
	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// CreateAnalyzerRequest represents a session creation request. Core is the
// analysis document stored verbatim; the optional precomputed projection is
// embedded alongside it so reads never recompute it.
type CreateAnalyzerRequest struct {
	Core        json.RawMessage     `json:"core" binding:"required"`
	Precomputed session.Precomputed `json:"precomputed"`
}

// AnalyzerListItem is one entry in the listing response
type AnalyzerListItem struct {
	AnalyzerID string `json:"analyzer_id"`
	HasData    bool   `json:"has_data"`
}

// AnalyzerListResponse represents the listing response
type AnalyzerListResponse struct {
	Count     int                `json:"count"`
	Analyzers []AnalyzerListItem `json:"analyzers"`
}

// SuccessResponse represents a plain success message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	snapshot := s.health.Health()

	status := "healthy"
	redisStatus := "connected"
	if !snapshot.Connected {
		status = "degraded"
		redisStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"storage":       snapshot.ActiveBackend,
		"redis":         redisStatus,
		"last_probe_at": snapshot.LastProbeAt.UTC().Format(time.RFC3339),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"version":       s.version,
		"mode":          s.mode,
	})
}

// handleCreateAnalyzer handles session creation
func (s *Server) handleCreateAnalyzer(c *gin.Context) {
	var req CreateAnalyzerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	info, err := s.sessions.Create(c.Request.Context(), req.Core, req.Precomputed)
	if err != nil {
		s.respondStorageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// handleListAnalyzers handles listing live sessions
func (s *Server) handleListAnalyzers(c *gin.Context) {
	ids, err := s.sessions.List(c.Request.Context())
	if err != nil {
		s.respondStorageError(c, err)
		return
	}

	items := make([]AnalyzerListItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, AnalyzerListItem{AnalyzerID: id, HasData: true})
	}

	c.JSON(http.StatusOK, AnalyzerListResponse{
		Count:     len(items),
		Analyzers: items,
	})
}

// handleGetAnalyzer handles fetching a session
func (s *Server) handleGetAnalyzer(c *gin.Context) {
	id := c.Param("id")

	sess, err := s.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "Analyzer not found or expired",
				},
			})
			return
		}
		s.respondStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// handleDeleteAnalyzer handles removing a session. Unknown ids succeed.
func (s *Server) handleDeleteAnalyzer(c *gin.Context) {
	id := c.Param("id")

	if err := s.sessions.Delete(c.Request.Context(), id); err != nil {
		s.respondStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: fmt.Sprintf("Analyzer %s deleted successfully", id),
	})
}

// respondStorageError maps storage-layer failures to API responses. A
// backend failure only reaches here when failover could not satisfy the
// call, so it reports service unavailability rather than a client error.
func (s *Server) respondStorageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrBackendUnavailable):
		s.logger.Error("storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORAGE_UNAVAILABLE",
				Message: "Storage backend unavailable",
			},
		})
	case errors.Is(err, storage.ErrSerialization):
		s.logger.Error("payload serialization failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SERIALIZATION_ERROR",
				Message: "Stored payload could not be decoded",
			},
		})
	default:
		s.logger.Error("storage error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "STORAGE_ERROR",
				Message: "Unexpected storage failure",
			},
		})
	}
}
