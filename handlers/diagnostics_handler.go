package handlers

import (
	"context"
	"net/http"

	"github.com/upb/llm-arena/services/diagnostics"
	"github.com/upb/llm-arena/utils"
	"go.uber.org/zap"
)

// DiagnosticsService checks provider connectivity
type DiagnosticsService interface {
	TestConnections(ctx context.Context) (diagnostics.ConnectionResults, error)
	KeyStatus(ctx context.Context) (*diagnostics.KeyReport, error)
}

// DiagnosticsHandler serves the connection and key check endpoints
type DiagnosticsHandler struct {
	service DiagnosticsService
	logger  *zap.Logger
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler
func NewDiagnosticsHandler(service DiagnosticsService, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleTestConnections handles GET /test-connections
func (h *DiagnosticsHandler) HandleTestConnections(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.TestConnections(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, results)
}

// HandleTestAPIKeys handles GET /test-api-keys
func (h *DiagnosticsHandler) HandleTestAPIKeys(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.KeyStatus(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, report)
}
