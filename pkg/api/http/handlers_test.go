package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/internal/application/session"
	"github.com/pmcdi/jarvais-highcharts-service/internal/application/store"
	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// fakeStore backs the session service in handler tests.
type fakeStore struct {
	records map[string]storage.Record
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]storage.Record)}
}

func (s *fakeStore) Put(_ context.Context, rec storage.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (storage.Record, error) {
	if s.err != nil {
		return storage.Record{}, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return storage.Record{}, fmt.Errorf("get %s: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.records, id)
	return nil
}

func (s *fakeStore) ListKeys(_ context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeHealth returns a fixed storage health snapshot.
type fakeHealth struct {
	snapshot store.HealthSnapshot
}

func (f fakeHealth) Health() store.HealthSnapshot { return f.snapshot }

func newTestServer(t *testing.T, st *fakeStore, health store.HealthSnapshot) *Server {
	t.Helper()

	return NewServer(&Config{
		Port:             0,
		Sessions:         session.NewService(st, time.Hour, zap.NewNop()),
		Health:           fakeHealth{snapshot: health},
		Logger:           zap.NewNop(),
		Version:          "test",
		Mode:             "development",
		CreatePerMinute:  1000,
		GeneralPerMinute: 1000,
		MaxBodyBytes:     1 << 20,
	})
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpointConnected(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{
		ActiveBackend: "redis",
		Connected:     true,
		LastProbeAt:   time.Now(),
	})

	w := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "redis", resp["storage"])
	assert.Equal(t, "connected", resp["redis"])
	assert.Equal(t, "test", resp["version"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{
		ActiveBackend: "memory",
		Connected:     false,
		LastProbeAt:   time.Now(),
	})

	w := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "memory", resp["storage"])
	assert.Equal(t, "disconnected", resp["redis"])
}

func TestCreateAndGetAnalyzer(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{Connected: true})

	body := []byte(`{"core":{"columns":["age"],"rows":10},"precomputed":{"projection":[[0.5,1.5]]}}`)
	w := doRequest(s, http.MethodPost, "/api/v1/analyzers", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created session.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.AnalyzerID)
	assert.True(t, created.ExpiresAt.After(created.CreatedAt))

	w = doRequest(s, http.MethodGet, "/api/v1/analyzers/"+created.AnalyzerID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sess session.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, created.AnalyzerID, sess.AnalyzerID)
	assert.JSONEq(t, `{"columns":["age"],"rows":10}`, string(sess.Core))
	assert.Equal(t, [][]float64{{0.5, 1.5}}, sess.Precomputed.Projection)
}

func TestCreateAnalyzerRejectsMissingCore(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{Connected: true})

	w := doRequest(s, http.MethodPost, "/api/v1/analyzers", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownAnalyzerReturns404(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{Connected: true})

	w := doRequest(s, http.MethodGet, "/api/v1/analyzers/unknown-id", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestListAnalyzers(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, st, store.HealthSnapshot{Connected: true})

	for i := 0; i < 3; i++ {
		w := doRequest(s, http.MethodPost, "/api/v1/analyzers", []byte(`{"core":{}}`))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(s, http.MethodGet, "/api/v1/analyzers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzerListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Analyzers, 3)
	for _, item := range resp.Analyzers {
		assert.True(t, item.HasData)
	}
}

func TestDeleteAnalyzerIsIdempotent(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{Connected: true})

	w := doRequest(s, http.MethodPost, "/api/v1/analyzers", []byte(`{"core":{}}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var created session.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(s, http.MethodDelete, "/api/v1/analyzers/"+created.AnalyzerID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleting again, or deleting an id that never existed, still succeeds.
	w = doRequest(s, http.MethodDelete, "/api/v1/analyzers/"+created.AnalyzerID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodDelete, "/api/v1/analyzers/never-existed", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStorageOutageReturns503(t *testing.T) {
	st := newFakeStore()
	st.err = fmt.Errorf("put: no backend available: %w", storage.ErrBackendUnavailable)
	s := newTestServer(t, st, store.HealthSnapshot{Connected: false})

	w := doRequest(s, http.MethodPost, "/api/v1/analyzers", []byte(`{"core":{}}`))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "STORAGE_UNAVAILABLE", resp.Error.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	st := newFakeStore()
	s := NewServer(&Config{
		Port:             0,
		Sessions:         session.NewService(st, time.Hour, zap.NewNop()),
		Health:           fakeHealth{},
		Logger:           zap.NewNop(),
		Version:          "test",
		Mode:             "development",
		CreatePerMinute:  2,
		GeneralPerMinute: 2,
		MaxBodyBytes:     1 << 20,
	})

	var last int
	for i := 0; i < 5; i++ {
		w := doRequest(s, http.MethodGet, "/api/v1/analyzers", nil)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, newFakeStore(), store.HealthSnapshot{Connected: true})

	w := doRequest(s, http.MethodOptions, "/api/v1/analyzers", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
