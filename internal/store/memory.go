package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Store used in tests and as a server backend in
// development. It supports failure injection and a synchronous change feed.
type Memory struct {
	mu          sync.Mutex
	name        string
	idPrefix    string
	now         func() time.Time
	commitments []model.Commitment
	sessions    []model.Session
	subs        map[int]Handlers
	nextSub     int

	// Err, when set, is returned by every operation
	Err error
}

// MemoryOption configures a Memory store
type MemoryOption func(*Memory)

// WithName sets the backend name
func WithName(name string) MemoryOption {
	return func(m *Memory) { m.name = name }
}

// WithIDPrefix prefixes generated IDs
func WithIDPrefix(prefix string) MemoryOption {
	return func(m *Memory) { m.idPrefix = prefix }
}

// WithNow sets the time source for CreatedAt defaults
func WithNow(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty in-memory store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		name: "memory",
		now:  time.Now,
		subs: make(map[int]Handlers),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name identifies the backend
func (m *Memory) Name() string {
	return m.name
}

// SetErr sets or clears the injected failure
func (m *Memory) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *Memory) failure() error {
	if m.Err != nil {
		return fmt.Errorf("%s: %w", m.name, m.Err)
	}
	return nil
}

// InsertCommitment stores c, assigning ID and CreatedAt when absent
func (m *Memory) InsertCommitment(ctx context.Context, c model.Commitment) (model.Commitment, error) {
	if err := CheckStatus(c.Status); err != nil {
		return model.Commitment{}, err
	}

	m.mu.Lock()
	if err := m.failure(); err != nil {
		m.mu.Unlock()
		return model.Commitment{}, err
	}
	if c.ID == "" {
		c.ID = m.idPrefix + uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now().UTC()
	}
	m.commitments = append(m.commitments, c)
	subs := m.handlers()
	m.mu.Unlock()

	for _, h := range subs {
		h.Dispatch(ChangeEvent{Type: EventInsert, Record: c})
	}
	return c, nil
}

// ListCommitments returns commitments newest first
func (m *Memory) ListCommitments(ctx context.Context, opts ListOptions) ([]model.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}

	out := make([]model.Commitment, len(m.commitments))
	copy(out, m.commitments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := opts.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateCommitmentStatus sets the status of an existing commitment
func (m *Memory) UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error) {
	if err := CheckStatus(status); err != nil {
		return model.Commitment{}, err
	}

	m.mu.Lock()
	if err := m.failure(); err != nil {
		m.mu.Unlock()
		return model.Commitment{}, err
	}
	idx := -1
	for i := range m.commitments {
		if m.commitments[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return model.Commitment{}, fmt.Errorf("commitment %s: %w", id, ErrNotFound)
	}
	m.commitments[idx].Status = status
	c := m.commitments[idx]
	subs := m.handlers()
	m.mu.Unlock()

	for _, h := range subs {
		h.Dispatch(ChangeEvent{Type: EventUpdate, Record: c})
	}
	return c, nil
}

// InsertSession stores s, assigning ID and CreatedAt when absent
func (m *Memory) InsertSession(ctx context.Context, s model.Session) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return model.Session{}, err
	}
	if s.ID == "" {
		s.ID = m.idPrefix + uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now().UTC()
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

// ListSessions returns sessions newest first, filtered by owner when set
func (m *Memory) ListSessions(ctx context.Context, opts ListOptions) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}

	var out []model.Session
	for _, s := range m.sessions {
		if opts.UserID != "" && (s.UserID == nil || *s.UserID != opts.UserID) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := opts.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Subscribe registers feed handlers. Events are delivered synchronously
// on the writer's goroutine.
func (m *Memory) Subscribe(ctx context.Context, h Handlers) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(); err != nil {
		return nil, err
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = h
	return NewCancelFunc(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}), nil
}

// Subscribers returns the number of attached feeds
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Memory) handlers() []Handlers {
	out := make([]Handlers, 0, len(m.subs))
	for _, h := range m.subs {
		out = append(out, h)
	}
	return out
}
