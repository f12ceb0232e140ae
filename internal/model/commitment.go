package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a commitment
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusExpired    Status = "expired" // derived only, never persisted
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Persistable reports whether s may be written to a backend
func (s Status) Persistable() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// Commitment is a publicly declared goal with a duration
type Commitment struct {
	ID              string    `json:"id"`
	Alias           string    `json:"alias"`
	Goal            string    `json:"goal"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	SessionID       *string   `json:"session_id"`
}

// DeriveStatus computes the status a commitment should display at now.
//
// A completed commitment stays completed. Otherwise the commitment is
// expired once now reaches createdAt + durationMinutes, and in progress
// before that. The result is never cached or written back.
func DeriveStatus(createdAt time.Time, durationMinutes int, persisted Status, now time.Time) Status {
	if persisted == StatusCompleted {
		return StatusCompleted
	}
	end := createdAt.Add(time.Duration(durationMinutes) * time.Minute)
	if !now.Before(end) {
		return StatusExpired
	}
	return StatusInProgress
}

// EffectiveStatus returns the derived status at now
func (c *Commitment) EffectiveStatus(now time.Time) Status {
	return DeriveStatus(c.CreatedAt, c.DurationMinutes, c.Status, now)
}

// EndsAt returns the instant the commitment window closes
func (c *Commitment) EndsAt() time.Time {
	return c.CreatedAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Remaining returns the time left in the commitment window, zero once it has closed
func (c *Commitment) Remaining(now time.Time) time.Duration {
	left := c.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// IsLocal reports whether the commitment was created by the device-local backend
func (c *Commitment) IsLocal() bool {
	return IsLocalID(c.ID)
}

// LocalIDPrefix marks IDs generated on the device
const LocalIDPrefix = "local-"

// IsLocalID reports whether id was generated on the device
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NewCommitment is a request to create a commitment
type NewCommitment struct {
	Alias           string  `json:"alias" validate:"required,max=64"`
	Goal            string  `json:"goal" validate:"required,max=500"`
	DurationMinutes int     `json:"duration_minutes" validate:"gt=0"`
	SessionID       *string `json:"session_id,omitempty"`
}

// Normalize trims whitespace from the free-text fields
func (r *NewCommitment) Normalize() {
	r.Alias = strings.TrimSpace(r.Alias)
	r.Goal = strings.TrimSpace(r.Goal)
	if r.SessionID != nil && strings.TrimSpace(*r.SessionID) == "" {
		r.SessionID = nil
	}
}

// Validate normalizes and validates the request
func (r *NewCommitment) Validate() error {
	r.Normalize()
	return validateStruct(r)
}

// Commitment builds the record to insert. ID and CreatedAt are left for the backend.
func (r NewCommitment) Commitment() Commitment {
	return Commitment{
		Alias:           r.Alias,
		Goal:            r.Goal,
		DurationMinutes: r.DurationMinutes,
		Status:          StatusInProgress,
		SessionID:       r.SessionID,
	}
}

// StatusUpdate is a request to change a commitment's persisted status.
// Only the terminal completed transition is accepted.
type StatusUpdate struct {
	ID     string `json:"id" validate:"required"`
	Status Status `json:"status" validate:"required,eq=completed"`
}

// Validate validates the request
func (r *StatusUpdate) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	return validateStruct(r)
}
