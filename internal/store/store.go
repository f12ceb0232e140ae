// Package store defines the record store contract shared by the remote and
// device-local backends.
package store

import (
	"context"
	"errors"

	"github.com/existflow/lockin/internal/model"
)

// DefaultListLimit caps list results when no limit is given
const DefaultListLimit = 50

var (
	// ErrNotFound is returned when an update targets an unknown ID
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when the backend could not be reached or failed
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnauthorized is returned when an operation needs an identity
	ErrUnauthorized = errors.New("unauthorized")
)

// ListOptions filters and bounds a list call. Results are always ordered
// by created_at, newest first.
type ListOptions struct {
	Limit  int
	UserID string // sessions only
}

// EffectiveLimit returns Limit or the default
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// CommitmentStore persists commitments
type CommitmentStore interface {
	// InsertCommitment assigns ID and CreatedAt when absent and returns the stored row
	InsertCommitment(ctx context.Context, c model.Commitment) (model.Commitment, error)
	ListCommitments(ctx context.Context, opts ListOptions) ([]model.Commitment, error)
	// UpdateCommitmentStatus returns ErrNotFound when id does not exist
	UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error)
}

// SessionStore persists finished focus sessions
type SessionStore interface {
	InsertSession(ctx context.Context, s model.Session) (model.Session, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]model.Session, error)
}

// Store is the full record store contract
type Store interface {
	CommitmentStore
	SessionStore

	// Subscribe attaches a change feed for commitments. Backends without a
	// feed return a no-op subscription.
	Subscribe(ctx context.Context, h Handlers) (Subscription, error)

	// Name identifies the backend in logs
	Name() string
}

// CheckStatus rejects statuses that may not be persisted
func CheckStatus(status model.Status) error {
	if !status.Persistable() {
		return &model.ValidationError{Fields: []string{"status (persistable)"}}
	}
	return nil
}
