// Package redisstore stores votes and history in Redis. Vote tallies are hashes
// updated with HINCRBY; history is a per-owner list of JSON entries.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
)

const defaultPrefix = "arena"

// NewClient parses redisURL and verifies the server answers
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type keyspace struct {
	prefix string
}

func newKeyspace(prefix string) keyspace {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return keyspace{prefix: prefix}
}

func (k keyspace) vote(provider string) string { return k.prefix + ":votes:" + provider }
func (k keyspace) voteIndex() string           { return k.prefix + ":votes" }
func (k keyspace) history(owner string) string { return k.prefix + ":history:" + owner }
func (k keyspace) entry(id uuid.UUID) string   { return k.prefix + ":history-entry:" + id.String() }

// VoteRepository implements repositories.VoteRepository
type VoteRepository struct {
	client redis.UniversalClient
	keys   keyspace
	logger *zap.Logger
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(client redis.UniversalClient, prefix string, logger *zap.Logger) *VoteRepository {
	return &VoteRepository{client: client, keys: newKeyspace(prefix), logger: logger}
}

// Increment bumps one counter and reads the tally back in a single MULTI
func (r *VoteRepository) Increment(ctx context.Context, provider string, direction models.VoteDirection) (*models.VoteTally, error) {
	if direction != models.VoteUp && direction != models.VoteDown {
		return nil, fmt.Errorf("unknown vote direction %q", direction)
	}

	key := r.keys.vote(provider)
	var fields *redis.MapStringStringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(direction), 1)
		pipe.HSet(ctx, key, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
		pipe.SAdd(ctx, r.keys.voteIndex(), provider)
		fields = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	r.logger.Debug("vote recorded",
		zap.String("provider", provider),
		zap.String("direction", string(direction)))
	return tallyFromHash(provider, fields.Val())
}

// Get returns the tally for provider, or a zero tally
func (r *VoteRepository) Get(ctx context.Context, provider string) (*models.VoteTally, error) {
	fields, err := r.client.HGetAll(ctx, r.keys.vote(provider)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get vote tally: %w", err)
	}
	return tallyFromHash(provider, fields)
}

// List returns all tallies ordered by provider
func (r *VoteRepository) List(ctx context.Context) ([]*models.VoteTally, error) {
	providers, err := r.client.SMembers(ctx, r.keys.voteIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list vote tallies: %w", err)
	}
	sort.Strings(providers)

	cmds := make([]*redis.MapStringStringCmd, len(providers))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range providers {
			cmds[i] = pipe.HGetAll(ctx, r.keys.vote(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vote tallies: %w", err)
	}

	tallies := make([]*models.VoteTally, 0, len(providers))
	for i, p := range providers {
		tally, err := tallyFromHash(p, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		tallies = append(tallies, tally)
	}
	return tallies, nil
}

func tallyFromHash(provider string, fields map[string]string) (*models.VoteTally, error) {
	tally := &models.VoteTally{Provider: provider}
	for name, dst := range map[string]*int64{"up": &tally.Up, "down": &tally.Down} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if _, err := fmt.Sscan(v, dst); err != nil {
			return nil, fmt.Errorf("corrupt %s counter for %s: %w", name, provider, err)
		}
	}
	if ts, ok := fields["updated_at"]; ok {
		tally.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return tally, nil
}

// storedEntry carries the fields HistoryEntry hides from API responses.
type storedEntry struct {
	ID        uuid.UUID       `json:"id"`
	Owner     string          `json:"owner"`
	SessionID string          `json:"session_id"`
	Question  string          `json:"question"`
	Responses json.RawMessage `json:"responses"`
	Timestamp string          `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s storedEntry) model() *models.HistoryEntry {
	return &models.HistoryEntry{
		ID:        s.ID,
		Owner:     s.Owner,
		SessionID: s.SessionID,
		Question:  s.Question,
		Responses: s.Responses,
		Timestamp: s.Timestamp,
		CreatedAt: s.CreatedAt,
	}
}

// HistoryRepository implements repositories.HistoryRepository
type HistoryRepository struct {
	client redis.UniversalClient
	keys   keyspace
	ttl    time.Duration
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository. A positive ttl is
// refreshed on every save; zero keeps entries forever.
func NewHistoryRepository(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{client: client, keys: newKeyspace(prefix), ttl: ttl, logger: logger}
}

// Save appends the entry to the owner's list
func (r *HistoryRepository) Save(ctx context.Context, entry *models.HistoryEntry) error {
	payload, err := json.Marshal(storedEntry{
		ID:        entry.ID,
		Owner:     entry.Owner,
		SessionID: entry.SessionID,
		Question:  entry.Question,
		Responses: entry.Responses,
		Timestamp: entry.Timestamp,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	listKey := r.keys.history(entry.Owner)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, listKey, payload)
		pipe.Set(ctx, r.keys.entry(entry.ID), payload, r.ttl)
		if r.ttl > 0 {
			pipe.Expire(ctx, listKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// Get returns owner's latest entry for sessionID
func (r *HistoryRepository) Get(ctx context.Context, owner, sessionID string) (*models.HistoryEntry, error) {
	entries, err := r.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].SessionID == sessionID {
			return entries[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

// GetByID returns an entry by its id
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	raw, err := r.client.Get(ctx, r.keys.entry(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}

	var s storedEntry
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode history entry: %w", err)
	}
	return s.model(), nil
}

// List returns owner's entries in insertion order
func (r *HistoryRepository) List(ctx context.Context, owner string) ([]*models.HistoryEntry, error) {
	raws, err := r.client.LRange(ctx, r.keys.history(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]*models.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var s storedEntry
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			r.logger.Warn("skipping undecodable history entry", zap.Error(err))
			continue
		}
		entries = append(entries, s.model())
	}
	return entries, nil
}

// HealthChecker pings the server
type HealthChecker struct {
	client redis.UniversalClient
}

// HealthCheck implements repositories.HealthChecker
func (h HealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// NewRepositories wires the Redis implementations on one client
func NewRepositories(client redis.UniversalClient, prefix string, historyTTL time.Duration, logger *zap.Logger) *repositories.Repositories {
	return &repositories.Repositories{
		Votes:   NewVoteRepository(client, prefix, logger),
		History: NewHistoryRepository(client, prefix, historyTTL, logger),
		Health:  HealthChecker{client: client},
	}
}
