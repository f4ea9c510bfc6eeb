package votes

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/llm-arena/internal/observability"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
	"github.com/upb/llm-arena/services"
	"github.com/upb/llm-arena/services/providers"
)

// ProviderLookup resolves a display name against the registry
type ProviderLookup interface {
	Lookup(name string) (providers.Entry, bool)
}

// Service records thumbs-up/down votes per provider
type Service struct {
	repo     repositories.VoteRepository
	registry ProviderLookup
	metrics  observability.Metrics
	logger   *zap.Logger
}

// NewService creates a new vote service. registry only decides which names
// are used as metric labels; it may be nil.
func NewService(repo repositories.VoteRepository, registry ProviderLookup, metrics observability.Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &Service{repo: repo, registry: registry, metrics: metrics, logger: logger}
}

// Cast applies one vote. Any provider name is accepted; an unseen name starts
// from a zero tally.
func (s *Service) Cast(ctx context.Context, provider, direction string) (*models.VoteTally, error) {
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(direction) == "" {
		return nil, services.ErrMissingData
	}

	dir, err := models.ParseVoteDirection(direction)
	if err != nil {
		return nil, services.ErrInvalidVote.WithDetail("vote", direction)
	}

	tally, err := s.repo.Increment(ctx, provider, dir)
	if err != nil {
		s.logger.Error("failed to record vote", zap.String("provider", provider), zap.Error(err))
		return nil, services.WrapInternal("failed to record vote", err)
	}

	s.metrics.RecordVote(s.metricLabel(provider), string(dir))
	return tally, nil
}

func (s *Service) metricLabel(provider string) string {
	if s.registry != nil {
		if _, ok := s.registry.Lookup(provider); ok {
			return provider
		}
	}
	return observability.LabelOther
}

// Tallies returns every stored tally keyed by provider
func (s *Service) Tallies(ctx context.Context) (map[string]*models.VoteTally, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list votes", err)
	}

	out := make(map[string]*models.VoteTally, len(list))
	for _, t := range list {
		out[t.Provider] = t
	}
	return out, nil
}
