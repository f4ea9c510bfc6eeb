package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
	"github.com/upb/llm-arena/services"
)

// Service archives answered questions per browser session
type Service struct {
	repo   repositories.HistoryRepository
	logger *zap.Logger
}

// NewService creates a new history service
func NewService(repo repositories.HistoryRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Save appends an entry to owner's history. sessionID, question and a
// non-empty responses document are all required.
func (s *Service) Save(ctx context.Context, owner, sessionID, question string, responses json.RawMessage) (*models.HistoryEntry, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(question) == "" || isEmptyJSON(responses) {
		return nil, services.ErrMissingData
	}
	if !json.Valid(responses) {
		return nil, services.ErrMissingData.WithDetail("responses", "must be valid JSON")
	}

	entry := models.NewHistoryEntry(owner, sessionID, question, responses)
	if err := s.repo.Save(ctx, entry); err != nil {
		s.logger.Error("failed to save history", zap.String("session_id", sessionID), zap.Error(err))
		return nil, services.WrapInternal("failed to save history", err)
	}

	s.logger.Debug("history saved",
		zap.String("entry_id", entry.ID.String()),
		zap.String("session_id", sessionID))
	return entry, nil
}

// List returns owner's history in insertion order
func (s *Service) List(ctx context.Context, owner string) ([]*models.HistoryEntry, error) {
	entries, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, services.WrapInternal("failed to load history", err)
	}
	return entries, nil
}

// Get returns owner's entry for a question session id
func (s *Service) Get(ctx context.Context, owner, sessionID string) (*models.HistoryEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, services.ErrMissingSessionID
	}
	return s.lookup(s.repo.Get(ctx, owner, sessionID))
}

// Shared resolves a share link. responseID is either an entry id, visible
// to anyone holding it, or a session id of the caller's own history.
func (s *Service) Shared(ctx context.Context, owner, responseID string) (*models.HistoryEntry, error) {
	if id, err := uuid.Parse(responseID); err == nil {
		return s.lookup(s.repo.GetByID(ctx, id))
	}
	return s.Get(ctx, owner, responseID)
}

func (s *Service) lookup(entry *models.HistoryEntry, err error) (*models.HistoryEntry, error) {
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrHistoryNotFound
		}
		return nil, services.WrapInternal("failed to load history", err)
	}
	return entry, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}
