package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// SessionIDLayout formats the per-question session id (YYYYMMDD_HHMMSS).
	SessionIDLayout = "20060102_150405"

	// TimestampLayout formats HistoryEntry.Timestamp.
	TimestampLayout = "2006-01-02 15:04:05"
)

// NewSessionID derives a question session id from t.
func NewSessionID(t time.Time) string {
	return t.Format(SessionIDLayout)
}

// HistoryEntry is one archived question with the answers it received.
type HistoryEntry struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Owner is the browser session the entry belongs to.
	Owner string `json:"-" db:"owner"`

	SessionID string          `json:"session_id" db:"session_id"`
	Question  string          `json:"question" db:"question"`
	Responses json.RawMessage `json:"responses" db:"responses"`
	Timestamp string          `json:"timestamp" db:"timestamp"`
	CreatedAt time.Time       `json:"-" db:"created_at"`
}

// TableName returns the table name for the HistoryEntry model
func (HistoryEntry) TableName() string {
	return "history_entries"
}

// NewHistoryEntry creates a new HistoryEntry stamped with the current time
func NewHistoryEntry(owner, sessionID, question string, responses json.RawMessage) *HistoryEntry {
	now := time.Now()
	return &HistoryEntry{
		ID:        uuid.New(),
		Owner:     owner,
		SessionID: sessionID,
		Question:  question,
		Responses: responses,
		Timestamp: now.Format(TimestampLayout),
		CreatedAt: now,
	}
}
