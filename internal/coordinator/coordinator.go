// Package coordinator decides which record store serves each operation.
//
// When a remote store is configured it is primary: every write and read is
// tried there first and falls back to the device-local store on any backend
// failure. The fallback is logged and never surfaced. Validation errors are
// returned before anything is written, and NotFound is surfaced only when
// every backend reports it.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/lockin/internal/clock"
	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
)

// Coordinator routes record store operations between the remote and local backends
type Coordinator struct {
	primary   store.Store // nil when no remote is configured
	local     store.Store
	timeout   time.Duration
	clock     clock.Clock
	log       *logger.Logger
	wallLimit int
	feedSize  int
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithRemoteTimeout bounds each remote call. Zero leaves it unbounded.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithClock sets the time source for session timestamps
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithLogger sets the logger for fallback reports
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithWallLimit sets how many commitments Load fetches
func WithWallLimit(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.wallLimit = n
		}
	}
}

// New creates a Coordinator. primary is nil when remote credentials are
// absent; the decision is made once, here.
func New(primary, local store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		primary:   primary,
		local:     local,
		clock:     clock.Real{},
		wallLimit: store.DefaultListLimit,
		feedSize:  64,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithFields(logger.F("component", "coordinator"))
	}
	return c
}

// Remote reports whether a remote store is primary
func (c *Coordinator) Remote() bool {
	return c.primary != nil
}

// Local returns the device-local store
func (c *Coordinator) Local() store.Store {
	return c.local
}

// Clock returns the coordinator's time source
func (c *Coordinator) Clock() clock.Clock {
	return c.clock
}

// CreateCommitment validates req and inserts it, remote first. The caller
// prepends the returned record to its Wall.
func (c *Coordinator) CreateCommitment(ctx context.Context, req model.NewCommitment) (model.Commitment, error) {
	if err := req.Validate(); err != nil {
		return model.Commitment{}, err
	}
	rec := req.Commitment()

	return withFallback(ctx, c, "insert commitment", func(ctx context.Context, s store.Store) (model.Commitment, error) {
		return s.InsertCommitment(ctx, rec)
	})
}

// CompleteCommitment performs the terminal completed transition. IDs minted
// on this device go straight to the local store: they never exist remotely,
// so a remote attempt could only return ErrNotFound.
func (c *Coordinator) CompleteCommitment(ctx context.Context, id string) (model.Commitment, error) {
	req := model.StatusUpdate{ID: id, Status: model.StatusCompleted}
	if err := req.Validate(); err != nil {
		return model.Commitment{}, err
	}

	update := func(ctx context.Context, s store.Store) (model.Commitment, error) {
		return s.UpdateCommitmentStatus(ctx, req.ID, req.Status)
	}
	if model.IsLocalID(req.ID) {
		return update(ctx, c.local)
	}
	return withFallback(ctx, c, "complete commitment", update)
}

// SaveSession validates req and persists the finished session, remote first
func (c *Coordinator) SaveSession(ctx context.Context, req model.NewSession) (model.Session, error) {
	if err := req.Validate(); err != nil {
		return model.Session{}, err
	}
	rec := req.Session()

	return withFallback(ctx, c, "insert session", func(ctx context.Context, s store.Store) (model.Session, error) {
		return s.InsertSession(ctx, rec)
	})
}

// LoadResult is the outcome of the initial wall load
type LoadResult struct {
	Commitments []model.Commitment
	Source      string // name of the backend that served the list
}

// Load lists the newest commitments, remote first
func (c *Coordinator) Load(ctx context.Context) (LoadResult, error) {
	var source string
	items, err := withFallback(ctx, c, "list commitments", func(ctx context.Context, s store.Store) ([]model.Commitment, error) {
		source = s.Name()
		return s.ListCommitments(ctx, store.ListOptions{Limit: c.wallLimit})
	})
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Commitments: items, Source: source}, nil
}

// ListSessions returns the session history of userID, remote first. An
// empty userID is rejected with store.ErrUnauthorized. Unlike the wall,
// an empty history is returned as is.
func (c *Coordinator) ListSessions(ctx context.Context, userID string, limit int) ([]model.Session, error) {
	if userID == "" {
		return nil, store.ErrUnauthorized
	}
	opts := store.ListOptions{Limit: limit, UserID: userID}
	return withFallback(ctx, c, "list sessions", func(ctx context.Context, s store.Store) ([]model.Session, error) {
		return s.ListSessions(ctx, opts)
	})
}

// Watch attaches the remote change feed. Events arrive on the returned
// channel for the wall owner to Apply. Without a remote store, or when the
// feed cannot be attached, the channel is nil and never delivers. The
// returned func detaches the feed and is safe to call more than once.
func (c *Coordinator) Watch(ctx context.Context) (<-chan store.ChangeEvent, func()) {
	if c.primary == nil {
		return nil, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan store.ChangeEvent, c.feedSize)
	deliver := func(ev store.ChangeEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	sub, err := c.primary.Subscribe(ctx, store.Handlers{
		OnInsert: func(rec model.Commitment) { deliver(store.ChangeEvent{Type: store.EventInsert, Record: rec}) },
		OnUpdate: func(rec model.Commitment) { deliver(store.ChangeEvent{Type: store.EventUpdate, Record: rec}) },
	})
	if err != nil {
		cancel()
		c.log.Warn("Change feed unavailable", logger.F("backend", c.primary.Name()), logger.Err(err))
		return nil, func() {}
	}

	c.log.Debug("Change feed attached", logger.F("backend", c.primary.Name()))
	stop := store.NewCancelFunc(func() {
		sub.Cancel()
		cancel()
	})
	return events, stop.Cancel
}

// withFallback runs op on the primary store and, on a backend failure, on
// the local store
func withFallback[T any](ctx context.Context, c *Coordinator, op string, fn func(context.Context, store.Store) (T, error)) (T, error) {
	if c.primary == nil {
		return fn(ctx, c.local)
	}

	rctx, cancel := c.remoteContext(ctx)
	v, err := fn(rctx, c.primary)
	cancel()
	if err == nil {
		return v, nil
	}
	if !shouldFallback(err) || ctx.Err() != nil {
		return v, err
	}

	c.log.Warn("Remote store failed, using local store",
		logger.F("op", op),
		logger.F("backend", c.primary.Name()),
		logger.Err(err))

	v, lerr := fn(ctx, c.local)
	if lerr != nil {
		return v, fmt.Errorf("%s: %w", op, lerr)
	}
	return v, nil
}

// shouldFallback reports whether err is a backend failure the local store
// can absorb. Validation failures are the caller's.
func shouldFallback(err error) bool {
	return !model.IsValidation(err)
}

func (c *Coordinator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
