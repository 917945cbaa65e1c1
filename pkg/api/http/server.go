package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/internal/application/session"
	"github.com/pmcdi/jarvais-highcharts-service/internal/application/store"
)

// HealthSource exposes the storage manager's current state to the health
// endpoint without triggering a probe.
type HealthSource interface {
	Health() store.HealthSnapshot
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	sessions *session.Service
	health   HealthSource
	logger   *zap.Logger
	version  string
	mode     string
}

// Config holds HTTP server configuration
type Config struct {
	Port     int
	Sessions *session.Service
	Health   HealthSource
	Logger   *zap.Logger
	Version  string
	Mode     string

	// Rate limits are per client IP, per minute.
	CreatePerMinute  int
	GeneralPerMinute int
	MaxBodyBytes     int64
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())
	router.Use(maxBodyMiddleware(cfg.MaxBodyBytes))

	s := &Server{
		router:   router,
		sessions: cfg.Sessions,
		health:   cfg.Health,
		logger:   cfg.Logger,
		version:  cfg.Version,
		mode:     cfg.Mode,
	}

	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(cfg *Config) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	createLimit := rateLimitMiddleware(cfg.CreatePerMinute)
	generalLimit := rateLimitMiddleware(cfg.GeneralPerMinute)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyzers", createLimit, s.handleCreateAnalyzer)
		v1.GET("/analyzers", generalLimit, s.handleListAnalyzers)
		v1.GET("/analyzers/:id", generalLimit, s.handleGetAnalyzer)
		v1.DELETE("/analyzers/:id", generalLimit, s.handleDeleteAnalyzer)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
