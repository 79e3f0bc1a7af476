package http

import (
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/repository/memory"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()
	storage := memory.New()
	accountant := clicks.NewAccountant(storage, zap.NewNop(), clicks.Config{
		Workers:         1,
		QueueSize:       8,
		RetryAttempts:   1,
		RetryDelay:      time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	require.NoError(t, accountant.Start())
	t.Cleanup(func() { _ = accountant.Stop() })
	return NewHealthHandler(storage, accountant, zap.NewNop())
}

func TestHealthHandler_Health(t *testing.T) {
	h := newHealthHandler(t)

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status         string `json:"status"`
		DatabaseStatus string `json:"database_status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.DatabaseStatus)
}

func TestHealthHandler_Ready(t *testing.T) {
	h := newHealthHandler(t)

	w := httptest.NewRecorder()
	h.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Metrics(t *testing.T) {
	h := newHealthHandler(t)

	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, w.Body.String(), "queue_capacity")
}
