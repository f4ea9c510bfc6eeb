package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
	"go.uber.org/zap"
)

const historyColumns = `id, owner, session_id, question, responses, timestamp, created_at`

// HistoryRepository implements repositories.HistoryRepository
type HistoryRepository struct {
	db     *DB
	tm     repositories.TransactionManager
	ttl    time.Duration
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository. Entries of an owner
// older than ttl are pruned whenever that owner saves; zero disables pruning.
func NewHistoryRepository(db *DB, tm repositories.TransactionManager, ttl time.Duration, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, tm: tm, ttl: ttl, logger: logger}
}

// Save inserts the entry and prunes the owner's expired entries atomically
func (r *HistoryRepository) Save(ctx context.Context, entry *models.HistoryEntry) error {
	return r.tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)

		_, err := executor.ExecContext(ctx, `
			INSERT INTO history_entries (`+historyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			entry.ID,
			entry.Owner,
			entry.SessionID,
			entry.Question,
			string(entry.Responses),
			entry.Timestamp,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save history entry: %w", err)
		}

		if r.ttl > 0 {
			res, err := executor.ExecContext(ctx,
				`DELETE FROM history_entries WHERE owner = $1 AND created_at < $2`,
				entry.Owner, time.Now().Add(-r.ttl))
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				r.logger.Debug("pruned expired history entries", zap.Int64("count", n))
			}
		}
		return nil
	})
}

// Get returns owner's latest entry for sessionID
func (r *HistoryRepository) Get(ctx context.Context, owner, sessionID string) (*models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM history_entries
		WHERE owner = $1 AND session_id = $2
		ORDER BY seq DESC
		LIMIT 1
	`
	return r.scanOne(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, owner, sessionID))
}

// GetByID returns an entry by its id
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM history_entries
		WHERE id = $1
	`
	return r.scanOne(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// List returns owner's entries in insertion order
func (r *HistoryRepository) List(ctx context.Context, owner string) ([]*models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM history_entries
		WHERE owner = $1
		ORDER BY seq
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []*models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

func (r *HistoryRepository) scanOne(row *sql.Row) (*models.HistoryEntry, error) {
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*models.HistoryEntry, error) {
	entry := &models.HistoryEntry{}
	var responses []byte
	err := s.Scan(
		&entry.ID,
		&entry.Owner,
		&entry.SessionID,
		&entry.Question,
		&responses,
		&entry.Timestamp,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}
	entry.Responses = append([]byte(nil), responses...)
	return entry, nil
}
