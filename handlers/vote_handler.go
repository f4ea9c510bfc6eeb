package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/llm-arena/middleware"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/services"
	"github.com/upb/llm-arena/utils"
	"go.uber.org/zap"
)

// VoteRequest is the body of POST /vote
type VoteRequest struct {
	Model string `json:"model"`
	Vote  string `json:"vote"`
}

// VoteService records and reports votes
type VoteService interface {
	Cast(ctx context.Context, provider, direction string) (*models.VoteTally, error)
	Tallies(ctx context.Context) (map[string]*models.VoteTally, error)
}

// VoteHandler handles vote-related HTTP requests
type VoteHandler struct {
	service VoteService
	logger  *zap.Logger
}

// NewVoteHandler creates a new VoteHandler
func NewVoteHandler(service VoteService, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		service: service,
		logger:  logger,
	}
}

// HandleVote handles POST /vote and returns the provider's updated tally
func (h *VoteHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse vote",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		HandleServiceError(w, services.ErrMissingData, h.logger)
		return
	}

	tally, err := h.service.Cast(r.Context(), req.Model, req.Vote)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, tally)
}

// HandleListVotes handles GET /api/votes
func (h *VoteHandler) HandleListVotes(w http.ResponseWriter, r *http.Request) {
	tallies, err := h.service.Tallies(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, tallies)
}
