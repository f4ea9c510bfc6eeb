package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/upb/llm-arena/repositories"
	"github.com/upb/llm-arena/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store   repositories.HealthChecker
	catalog DescriptorLister
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil store is reported as
// not initialized.
func NewHealthHandler(store repositories.HealthChecker, catalog DescriptorLister, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that the vote/history store is reachable
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.store == nil:
		checks["store"] = "not_initialized"
		allHealthy = false
	default:
		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Warn("store health check failed", zap.Error(err))
			checks["store"] = "unhealthy"
			allHealthy = false
		} else {
			checks["store"] = "healthy"
		}
	}

	if h.catalog == nil || len(h.catalog.Descriptors()) == 0 {
		checks["providers"] = "none_configured"
		allHealthy = false
	} else {
		checks["providers"] = fmt.Sprintf("%d configured", len(h.catalog.Descriptors()))
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
