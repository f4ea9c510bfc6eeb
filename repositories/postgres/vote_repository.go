package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/llm-arena/models"
	"go.uber.org/zap"
)

// VoteRepository implements repositories.VoteRepository
type VoteRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *DB, logger *zap.Logger) *VoteRepository {
	return &VoteRepository{db: db, logger: logger}
}

// Increment upserts the tally in a single statement so concurrent votes
// never lose updates.
func (r *VoteRepository) Increment(ctx context.Context, provider string, direction models.VoteDirection) (*models.VoteTally, error) {
	var up, down int64
	switch direction {
	case models.VoteUp:
		up = 1
	case models.VoteDown:
		down = 1
	default:
		return nil, fmt.Errorf("unknown vote direction %q", direction)
	}

	query := `
		INSERT INTO vote_tallies (provider, up, down, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider) DO UPDATE
		SET up = vote_tallies.up + EXCLUDED.up,
			down = vote_tallies.down + EXCLUDED.down,
			updated_at = EXCLUDED.updated_at
		RETURNING up, down, updated_at
	`

	tally := &models.VoteTally{Provider: provider}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, provider, up, down, time.Now()).
		Scan(&tally.Up, &tally.Down, &tally.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	r.logger.Debug("vote recorded",
		zap.String("provider", provider),
		zap.String("direction", string(direction)))
	return tally, nil
}

// Get returns the tally for provider, or a zero tally
func (r *VoteRepository) Get(ctx context.Context, provider string) (*models.VoteTally, error) {
	query := `
		SELECT up, down, updated_at
		FROM vote_tallies
		WHERE provider = $1
	`

	tally := &models.VoteTally{Provider: provider}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, provider).
		Scan(&tally.Up, &tally.Down, &tally.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.VoteTally{Provider: provider}, nil
		}
		return nil, fmt.Errorf("failed to get vote tally: %w", err)
	}
	return tally, nil
}

// List returns all tallies ordered by provider
func (r *VoteRepository) List(ctx context.Context) ([]*models.VoteTally, error) {
	query := `
		SELECT provider, up, down, updated_at
		FROM vote_tallies
		ORDER BY provider
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vote tallies: %w", err)
	}
	defer rows.Close()

	var tallies []*models.VoteTally
	for rows.Next() {
		tally := &models.VoteTally{}
		if err := rows.Scan(&tally.Provider, &tally.Up, &tally.Down, &tally.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote tally: %w", err)
		}
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote tallies: %w", err)
	}

	return tallies, nil
}
