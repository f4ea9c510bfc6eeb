package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/llm-arena/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// VoteRepository stores per-provider vote tallies. Implementations must make
// Increment atomic with respect to concurrent callers.
type VoteRepository interface {
	// Increment adds one vote and returns the updated tally
	Increment(ctx context.Context, provider string, direction models.VoteDirection) (*models.VoteTally, error)

	// Get returns the tally for a provider; never-voted providers get a zero tally
	Get(ctx context.Context, provider string) (*models.VoteTally, error)

	// List returns every stored tally ordered by provider name
	List(ctx context.Context) ([]*models.VoteTally, error)
}

// HistoryRepository stores archived questions per browser session
type HistoryRepository interface {
	// Save appends an entry to its owner's history
	Save(ctx context.Context, entry *models.HistoryEntry) error

	// Get returns the most recent entry of owner with the given session id
	Get(ctx context.Context, owner, sessionID string) (*models.HistoryEntry, error)

	// GetByID returns an entry regardless of owner (used for sharing)
	GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error)

	// List returns owner's entries in insertion order
	List(ctx context.Context, owner string) ([]*models.HistoryEntry, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Repositories holds all repository instances
type Repositories struct {
	Votes   VoteRepository
	History HistoryRepository
	Health  HealthChecker
}
