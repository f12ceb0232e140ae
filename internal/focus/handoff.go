// Package focus runs a focus session from the pending-session handoff to
// the persisted session record.
package focus

import (
	"context"
	"errors"
	"fmt"

	"github.com/existflow/lockin/internal/db"
	"github.com/existflow/lockin/internal/model"
)

// PendingSessionKey is the device-scoped slot holding the handoff payload
const PendingSessionKey = "pending_session"

// ErrNoPendingSession is returned by Take when there is nothing to run.
// Callers send the user back to the entry point.
var ErrNoPendingSession = errors.New("no pending session")

// Handoff passes one PendingSession from the commitment flow to the focus flow
type Handoff interface {
	Put(ctx context.Context, p model.PendingSession) error
	// Take returns the payload and clears the slot; a payload is delivered at most once
	Take(ctx context.Context) (model.PendingSession, error)
}

// KV is a device-scoped key-value slot store
type KV interface {
	Put(ctx context.Context, key string, value any) error
	Take(ctx context.Context, key string, dest any) error
}

type kvHandoff struct {
	kv KV
}

// NewHandoff creates a Handoff backed by kv
func NewHandoff(kv KV) Handoff {
	return &kvHandoff{kv: kv}
}

func (h *kvHandoff) Put(ctx context.Context, p model.PendingSession) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return h.kv.Put(ctx, PendingSessionKey, p)
}

func (h *kvHandoff) Take(ctx context.Context) (model.PendingSession, error) {
	var p model.PendingSession
	err := h.kv.Take(ctx, PendingSessionKey, &p)
	if errors.Is(err, db.ErrKeyNotFound) {
		return model.PendingSession{}, ErrNoPendingSession
	}
	if err != nil {
		return model.PendingSession{}, fmt.Errorf("%w: %v", ErrNoPendingSession, err)
	}
	// A payload written by an older build may not validate
	if err := p.Validate(); err != nil {
		return model.PendingSession{}, fmt.Errorf("%w: %v", ErrNoPendingSession, err)
	}
	return p, nil
}
