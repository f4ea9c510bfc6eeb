// Package memory keeps votes and history in process memory. Data is lost on
// restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
)

// VoteRepository is a mutex-guarded map of tallies
type VoteRepository struct {
	mu      sync.Mutex
	tallies map[string]*models.VoteTally
}

// NewVoteRepository creates an empty vote repository
func NewVoteRepository() *VoteRepository {
	return &VoteRepository{tallies: make(map[string]*models.VoteTally)}
}

func (r *VoteRepository) Increment(_ context.Context, provider string, direction models.VoteDirection) (*models.VoteTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tally, ok := r.tallies[provider]
	if !ok {
		tally = models.NewVoteTally(provider)
		r.tallies[provider] = tally
	}
	tally.Apply(direction)

	out := *tally
	return &out, nil
}

func (r *VoteRepository) Get(_ context.Context, provider string) (*models.VoteTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tally, ok := r.tallies[provider]; ok {
		out := *tally
		return &out, nil
	}
	return &models.VoteTally{Provider: provider}, nil
}

func (r *VoteRepository) List(_ context.Context) ([]*models.VoteTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.VoteTally, 0, len(r.tallies))
	for _, tally := range r.tallies {
		cp := *tally
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

// maxSweepInterval bounds how long expired entries of idle owners survive.
const maxSweepInterval = time.Minute

// HistoryRepository keeps entries per owner, dropping entries older than ttl
// on write. The writer's own entries are pruned on every save; every other
// owner is swept at most once per sweep interval.
type HistoryRepository struct {
	mu        sync.RWMutex
	ttl       time.Duration
	byOwner   map[string][]*models.HistoryEntry
	lastSweep time.Time
	now       func() time.Time
}

// NewHistoryRepository creates an empty history repository. A zero ttl keeps
// entries forever.
func NewHistoryRepository(ttl time.Duration) *HistoryRepository {
	return &HistoryRepository{
		ttl:     ttl,
		byOwner: make(map[string][]*models.HistoryEntry),
		now:     time.Now,
	}
}

func (r *HistoryRepository) Save(_ context.Context, entry *models.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ttl > 0 {
		now := r.now()
		cutoff := now.Add(-r.ttl)
		if now.Sub(r.lastSweep) >= r.sweepInterval() {
			for owner := range r.byOwner {
				r.prune(owner, cutoff)
			}
			r.lastSweep = now
		} else {
			r.prune(entry.Owner, cutoff)
		}
	}

	cp := *entry
	r.byOwner[entry.Owner] = append(r.byOwner[entry.Owner], &cp)
	return nil
}

func (r *HistoryRepository) sweepInterval() time.Duration {
	if iv := r.ttl / 10; iv < maxSweepInterval {
		return iv
	}
	return maxSweepInterval
}

// prune drops expired entries of owner and forgets owners left empty.
// Callers hold the write lock.
func (r *HistoryRepository) prune(owner string, cutoff time.Time) {
	entries := r.byOwner[owner]
	kept := entries[:0]
	for _, e := range entries {
		if e.CreatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(entries); i++ {
		entries[i] = nil
	}

	if len(kept) == 0 {
		delete(r.byOwner, owner)
		return
	}
	r.byOwner[owner] = kept
}

func (r *HistoryRepository) Get(_ context.Context, owner, sessionID string) (*models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byOwner[owner]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].SessionID == sessionID {
			cp := *entries[i]
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *HistoryRepository) GetByID(_ context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entries := range r.byOwner {
		for _, e := range entries {
			if e.ID == id {
				cp := *e
				return &cp, nil
			}
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *HistoryRepository) List(_ context.Context, owner string) ([]*models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.byOwner[owner]
	out := make([]*models.HistoryEntry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// HealthCheck always succeeds
func (r *HistoryRepository) HealthCheck(context.Context) error {
	return nil
}

// NewRepositories wires the in-memory implementations
func NewRepositories(historyTTL time.Duration) *repositories.Repositories {
	history := NewHistoryRepository(historyTTL)
	return &repositories.Repositories{
		Votes:   NewVoteRepository(),
		History: history,
		Health:  history,
	}
}
