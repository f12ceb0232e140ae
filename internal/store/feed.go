package store

import (
	"sync"

	"github.com/existflow/lockin/internal/model"
)

// EventType is the kind of change carried by the feed
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// ChangeEvent is one commitment mutation pushed by the feed
type ChangeEvent struct {
	Type   EventType        `json:"type"`
	Record model.Commitment `json:"record"`
}

// Handlers receive feed events. Either may be nil.
type Handlers struct {
	OnInsert func(model.Commitment)
	OnUpdate func(model.Commitment)
}

// Dispatch routes ev to the matching handler
func (h Handlers) Dispatch(ev ChangeEvent) {
	switch ev.Type {
	case EventInsert:
		if h.OnInsert != nil {
			h.OnInsert(ev.Record)
		}
	case EventUpdate:
		if h.OnUpdate != nil {
			h.OnUpdate(ev.Record)
		}
	}
}

// Subscription is a live feed attachment
type Subscription interface {
	// Cancel detaches the feed. Safe to call more than once.
	Cancel()
}

// CancelFunc adapts a function to Subscription, running it at most once
type CancelFunc struct {
	once sync.Once
	fn   func()
}

// NewCancelFunc wraps fn
func NewCancelFunc(fn func()) *CancelFunc {
	return &CancelFunc{fn: fn}
}

// Cancel runs the wrapped function once
func (c *CancelFunc) Cancel() {
	c.once.Do(func() {
		if c.fn != nil {
			c.fn()
		}
	})
}

// NoopSubscription is returned by backends without a change feed
type NoopSubscription struct{}

// Cancel does nothing
func (NoopSubscription) Cancel() {}
