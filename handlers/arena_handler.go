package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/upb/llm-arena/middleware"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/services/aggregation"
	"github.com/upb/llm-arena/services/providers"
	"github.com/upb/llm-arena/utils"
	"go.uber.org/zap"
)

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Question  string   `json:"question" validate:"required,notblank"`
	Providers []string `json:"providers" validate:"dive,notblank"`
}

// AskResponse is the aggregation result plus the id the client saves it under
type AskResponse struct {
	*aggregation.Result
	SessionID string `json:"session_id"`
}

// ProviderInfo is one entry of GET /api/providers
type ProviderInfo struct {
	providers.Descriptor
	Available bool `json:"available"`
}

// ProvidersResponse is the body of GET /api/providers
type ProvidersResponse struct {
	Providers    []ProviderInfo                               `json:"providers"`
	APIKeyStatus map[providers.Credential]providers.KeyStatus `json:"api_key_status"`
}

// ExportResponse is the body of POST /export
type ExportResponse struct {
	Filename string          `json:"filename"`
	Data     json.RawMessage `json:"data"`
}

// Aggregator fans a question out to the selected providers
type Aggregator interface {
	Aggregate(ctx context.Context, question string, requested []string) (*aggregation.Result, error)
}

// DescriptorLister exposes provider metadata in display order
type DescriptorLister interface {
	Descriptors() []providers.Descriptor
}

// ArenaHandler serves the question, catalog and export endpoints
type ArenaHandler struct {
	aggregator  Aggregator
	catalog     DescriptorLister
	credentials providers.Credentials
	logger      *zap.Logger
	now         func() time.Time
}

// NewArenaHandler creates a new ArenaHandler
func NewArenaHandler(aggregator Aggregator, catalog DescriptorLister, credentials providers.Credentials, logger *zap.Logger) *ArenaHandler {
	return &ArenaHandler{
		aggregator:  aggregator,
		catalog:     catalog,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleAsk handles POST /api/ask
func (h *ArenaHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.aggregator.Aggregate(ctx, req.Question, req.Providers)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("question answered",
		zap.String("request_id", requestID),
		zap.Int("requested", len(req.Providers)),
		zap.Int("responses", len(result.Responses)),
		zap.Int("errors", len(result.PreconditionErrors)))

	if err := utils.WriteOK(w, AskResponse{
		Result:    result,
		SessionID: models.NewSessionID(h.now()),
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleProviders handles GET /api/providers
func (h *ArenaHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.Descriptors()
	infos := make([]ProviderInfo, 0, len(descriptors))
	for _, d := range descriptors {
		infos = append(infos, ProviderInfo{
			Descriptor: d,
			Available:  h.credentials.Has(d.Credential),
		})
	}

	_ = utils.WriteOK(w, ProvidersResponse{
		Providers:    infos,
		APIKeyStatus: h.credentials.Status(),
	})
}

// HandleExport handles POST /export. The payload is echoed back with a
// timestamped download name.
func (h *ArenaHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var data json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	_ = utils.WriteOK(w, ExportResponse{
		Filename: fmt.Sprintf("ai_responses_%s.json", models.NewSessionID(h.now())),
		Data:     data,
	})
}
