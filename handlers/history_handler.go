package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/llm-arena/middleware"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/services"
	"github.com/upb/llm-arena/utils"
	"go.uber.org/zap"
)

// SaveHistoryRequest is the body of POST /api/save-history
type SaveHistoryRequest struct {
	SessionID string          `json:"session_id"`
	Question  string          `json:"question"`
	Responses json.RawMessage `json:"responses"`
}

// HistoryService stores and retrieves answered questions per browser session
type HistoryService interface {
	Save(ctx context.Context, owner, sessionID, question string, responses json.RawMessage) (*models.HistoryEntry, error)
	List(ctx context.Context, owner string) ([]*models.HistoryEntry, error)
	Get(ctx context.Context, owner, sessionID string) (*models.HistoryEntry, error)
	Shared(ctx context.Context, owner, responseID string) (*models.HistoryEntry, error)
}

// HistoryHandler handles history-related HTTP requests
type HistoryHandler struct {
	service HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

func owner(r *http.Request) string {
	return middleware.GetSessionIDFromContext(r.Context()).String()
}

// HandleSave handles POST /api/save-history
func (h *HistoryHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse history",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		HandleServiceError(w, services.ErrMissingData, h.logger)
		return
	}

	entry, err := h.service.Save(r.Context(), owner(r), req.SessionID, req.Question, req.Responses)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse{
		Data:    entry,
		Message: "History saved successfully",
	})
}

// HandleList handles GET /api/get-history
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), owner(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	_ = utils.WriteOK(w, entries)
}

// HandleGet handles GET /api/get-response-data/{session_id} and
// GET /view-responses/{session_id}
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), owner(r), chi.URLParam(r, "session_id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, entry)
}

// HandleShare handles GET /share/{response_id}
func (h *HistoryHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Shared(r.Context(), owner(r), chi.URLParam(r, "response_id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, entry)
}
