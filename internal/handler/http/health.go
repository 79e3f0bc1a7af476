package http

import (
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	storage    repository.Storage
	accountant *clicks.Accountant
	log        *zap.Logger
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(storage repository.Storage, accountant *clicks.Accountant, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:    storage,
		accountant: accountant,
		log:        log,
	}
}

// HealthResponse is the health probe payload.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	DatabaseStatus string    `json:"database_status"`
	Uptime         string    `json:"uptime,omitempty"`
}

var startTime = time.Now()

// Health reports overall service health, including a storage round trip.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// A lookup for a code that cannot exist exercises the storage path; only
	// a non-miss error means the database is unhealthy.
	dbStatus := "healthy"
	_, err := h.storage.FindByCode(ctx, "health-check-non-existent")
	if err != nil && !errors.Is(err, repository.ErrCodeNotFound) {
		dbStatus = "unhealthy"
		h.log.Error("database health check failed", zap.Error(err))
	}

	status := "healthy"
	statusCode := http.StatusOK
	if dbStatus == "unhealthy" {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode health response", zap.Error(err))
	}
}

// Ready is the readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode ready response", zap.Error(err))
	}
}

// Metrics exposes basic service metrics, including click-queue fill.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": time.Since(startTime).Seconds(),
		"timestamp":      time.Now(),
	}
	if h.accountant != nil {
		metrics["click_queue"] = h.accountant.QueueStats()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metrics); err != nil {
		h.log.Error("failed to encode metrics response", zap.Error(err))
	}
}
