package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/google/uuid"
)

// ErrConflict is returned when an account already exists
var ErrConflict = errors.New("already exists")

// Records is the persistence the record endpoints need
type Records interface {
	store.CommitmentStore
	store.SessionStore
}

// Accounts persists users, bearer tokens and magic links
type Accounts interface {
	// CreateUser assigns ID and CreatedAt; ErrConflict when the email is taken
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)

	CreateToken(ctx context.Context, t model.AuthToken) error
	Token(ctx context.Context, token string) (model.AuthToken, error)
	DeleteToken(ctx context.Context, token string) error

	CreateMagicLink(ctx context.Context, m model.MagicLink) error
	// ConsumeMagicLink marks the link used and returns it as it was before
	ConsumeMagicLink(ctx context.Context, token string) (model.MagicLink, error)
}

// MemoryAccounts is an in-process Accounts for tests and development
type MemoryAccounts struct {
	mu     sync.Mutex
	now    func() time.Time
	users  map[string]model.User // by ID
	tokens map[string]model.AuthToken
	links  map[string]model.MagicLink
}

var _ Accounts = (*MemoryAccounts)(nil)

// NewMemoryAccounts creates an empty account store
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		now:    time.Now,
		users:  make(map[string]model.User),
		tokens: make(map[string]model.AuthToken),
		links:  make(map[string]model.MagicLink),
	}
}

func (m *MemoryAccounts) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, fmt.Errorf("user %s: %w", u.Email, ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryAccounts) UserByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (m *MemoryAccounts) UserByID(ctx context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, nil
}

func (m *MemoryAccounts) CreateToken(ctx context.Context, t model.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now().UTC()
	}
	m.tokens[t.Token] = t
	return nil
}

func (m *MemoryAccounts) Token(ctx context.Context, token string) (model.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return model.AuthToken{}, store.ErrNotFound
	}
	return t, nil
}

func (m *MemoryAccounts) DeleteToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *MemoryAccounts) CreateMagicLink(ctx context.Context, link model.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = m.now().UTC()
	}
	m.links[link.Token] = link
	return nil
}

func (m *MemoryAccounts) ConsumeMagicLink(ctx context.Context, token string) (model.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok {
		return model.MagicLink{}, store.ErrNotFound
	}
	used := link
	used.Used = true
	m.links[token] = used
	return link, nil
}
