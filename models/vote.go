package models

import (
	"fmt"
	"strings"
	"time"
)

// VoteDirection is either up or down.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection accepts "up" or "down" in any case.
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(strings.ToLower(strings.TrimSpace(s))) {
	case VoteUp:
		return VoteUp, nil
	case VoteDown:
		return VoteDown, nil
	default:
		return "", fmt.Errorf("unknown vote direction %q", s)
	}
}

// VoteTally holds the up/down counters for one provider. A provider that
// was never voted on has a zero tally.
type VoteTally struct {
	Provider  string    `json:"-" db:"provider"`
	Up        int64     `json:"up" db:"up"`
	Down      int64     `json:"down" db:"down"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// TableName returns the table name for the VoteTally model
func (VoteTally) TableName() string {
	return "vote_tallies"
}

// NewVoteTally creates a zero tally
func NewVoteTally(provider string) *VoteTally {
	return &VoteTally{
		Provider:  provider,
		UpdatedAt: time.Now(),
	}
}

// Apply increments the counter for direction.
func (v *VoteTally) Apply(direction VoteDirection) {
	switch direction {
	case VoteUp:
		v.Up++
	case VoteDown:
		v.Down++
	}
	v.UpdatedAt = time.Now()
}
