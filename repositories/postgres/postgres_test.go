package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/repositories"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return WrapDB(sqlDB, zap.NewNop()), mock
}

func TestVoteRepository_Increment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO vote_tallies .* ON CONFLICT \(provider\) DO UPDATE`).
		WithArgs("GPT-2", int64(0), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"up", "down", "updated_at"}).AddRow(2, 1, now))

	tally, err := repo.Increment(context.Background(), "GPT-2", models.VoteDown)

	require.NoError(t, err)
	assert.Equal(t, "GPT-2", tally.Provider)
	assert.Equal(t, int64(2), tally.Up)
	assert.Equal(t, int64(1), tally.Down)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_IncrementRejectsUnknownDirection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepository(db, zap.NewNop())

	_, err := repo.Increment(context.Background(), "GPT-2", models.VoteDirection("sideways"))

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_GetMissingIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT up, down, updated_at\s+FROM vote_tallies`).
		WithArgs("OPT").
		WillReturnRows(sqlmock.NewRows([]string{"up", "down", "updated_at"}))

	tally, err := repo.Get(context.Background(), "OPT")

	require.NoError(t, err)
	assert.Equal(t, "OPT", tally.Provider)
	assert.Zero(t, tally.Up)
	assert.Zero(t, tally.Down)
}

func TestVoteRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(`SELECT provider, up, down, updated_at\s+FROM vote_tallies\s+ORDER BY provider`).
		WillReturnRows(sqlmock.NewRows([]string{"provider", "up", "down", "updated_at"}).
			AddRow("BART", 1, 0, now).
			AddRow("OPT", 0, 3, now))

	list, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BART", list[0].Provider)
	assert.Equal(t, int64(3), list[1].Down)
}

func TestVoteRepository_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT provider`).WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func newHistoryRepo(t *testing.T, ttl time.Duration) (*HistoryRepository, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return NewHistoryRepository(db, NewTransactionManager(db, zap.NewNop()), ttl, zap.NewNop()), mock
}

func TestHistoryRepository_SaveAndPrune(t *testing.T) {
	repo, mock := newHistoryRepo(t, time.Hour)
	entry := models.NewHistoryEntry("owner", "20240101_120000", "q", json.RawMessage(`{"GPT-2":{}}`))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO history_entries`).
		WithArgs(entry.ID, "owner", "20240101_120000", "q", `{"GPT-2":{}}`, entry.Timestamp, entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM history_entries WHERE owner = \$1 AND created_at < \$2`).
		WithArgs("owner", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_SaveRollsBackOnError(t *testing.T) {
	repo, mock := newHistoryRepo(t, 0)
	entry := models.NewHistoryEntry("owner", "s", "q", json.RawMessage(`{}`))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO history_entries`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), entry)

	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func historyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner", "session_id", "question", "responses", "timestamp", "created_at"})
}

func TestHistoryRepository_Get(t *testing.T) {
	repo, mock := newHistoryRepo(t, 0)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM history_entries\s+WHERE owner = \$1 AND session_id = \$2`).
		WithArgs("owner", "20240101_120000").
		WillReturnRows(historyRows().AddRow(id.String(), "owner", "20240101_120000", "q", []byte(`{"a":1}`), "2024-01-01 12:00:00", now))

	entry, err := repo.Get(context.Background(), "owner", "20240101_120000")

	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
	assert.JSONEq(t, `{"a":1}`, string(entry.Responses))
	assert.Equal(t, "2024-01-01 12:00:00", entry.Timestamp)
}

func TestHistoryRepository_GetNotFound(t *testing.T) {
	repo, mock := newHistoryRepo(t, 0)

	mock.ExpectQuery(`FROM history_entries\s+WHERE id = \$1`).WillReturnRows(historyRows())

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestHistoryRepository_List(t *testing.T) {
	repo, mock := newHistoryRepo(t, 0)
	now := time.Now()

	mock.ExpectQuery(`FROM history_entries\s+WHERE owner = \$1\s+ORDER BY seq`).
		WithArgs("owner").
		WillReturnRows(historyRows().
			AddRow(uuid.NewString(), "owner", "s1", "q1", []byte(`{}`), "t", now).
			AddRow(uuid.NewString(), "owner", "s2", "q2", []byte(`{}`), "t", now))

	list, err := repo.List(context.Background(), "owner")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q1", list[0].Question)
	assert.Equal(t, "s2", list[1].SessionID)
}

func TestDB_HealthCheck(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_HealthCheckPingFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing().WillReturnError(errors.New("refused"))

	assert.ErrorContains(t, db.HealthCheck(context.Background()), "database health check failed")
}

func TestDB_InitSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS vote_tallies`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, db.InitSchema(context.Background()))
}

func TestRepositoryFactory_NewRepositories(t *testing.T) {
	db, _ := newMockDB(t)
	f := NewRepositoryFactoryFromDB(db, zap.NewNop())

	repos := f.NewRepositories(time.Hour)

	assert.IsType(t, &VoteRepository{}, repos.Votes)
	assert.IsType(t, &HistoryRepository{}, repos.History)
	assert.Same(t, db, f.GetDB())
}
