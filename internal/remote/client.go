// Package remote is the client for the LockIn server. It implements
// store.Store over the HTTP API and the websocket change feed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status code to the store and model error kinds
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return model.ErrValidation
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return store.ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return store.ErrNotFound
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return store.ErrUnavailable
	}
	return nil
}

// Options configures a Client
type Options struct {
	URL    string
	APIKey string
	// AuthPath overrides ~/.lockin/auth.json
	AuthPath string
	// Timeout bounds each HTTP request. Zero means no bound.
	Timeout time.Duration
}

// Client talks to the LockIn server
type Client struct {
	baseURL    string
	apiKey     string
	authPath   string
	httpClient *http.Client

	mu   sync.Mutex
	auth *AuthState
}

var _ store.Store = (*Client)(nil)

// NewClient creates a client and loads any saved sign-in
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("remote url required")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}

	authPath := opts.AuthPath
	if authPath == "" {
		p, err := DefaultAuthPath()
		if err != nil {
			return nil, err
		}
		authPath = p
	}

	auth, err := loadAuth(authPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		apiKey:     opts.APIKey,
		authPath:   authPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		auth:       auth,
	}, nil
}

// Name identifies the backend
func (c *Client) Name() string {
	return "remote"
}

// URL returns the server base URL
func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return ""
	}
	return c.auth.Token
}

// do sends a JSON request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response: %v", store.ErrUnavailable, err)
	}
	return nil
}

// InsertCommitment creates a commitment on the server
func (c *Client) InsertCommitment(ctx context.Context, rec model.Commitment) (model.Commitment, error) {
	if err := store.CheckStatus(rec.Status); err != nil {
		return model.Commitment{}, err
	}
	req := model.NewCommitment{
		Alias:           rec.Alias,
		Goal:            rec.Goal,
		DurationMinutes: rec.DurationMinutes,
		SessionID:       rec.SessionID,
	}
	var out model.Commitment
	if err := c.do(ctx, http.MethodPost, "/api/v1/commitments", req, &out); err != nil {
		return model.Commitment{}, err
	}
	return out, nil
}

// ListCommitments returns the newest commitments
func (c *Client) ListCommitments(ctx context.Context, opts store.ListOptions) ([]model.Commitment, error) {
	out := []model.Commitment{}
	path := "/api/v1/commitments?limit=" + strconv.Itoa(opts.EffectiveLimit())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCommitmentStatus applies a status transition on the server
func (c *Client) UpdateCommitmentStatus(ctx context.Context, id string, status model.Status) (model.Commitment, error) {
	if err := store.CheckStatus(status); err != nil {
		return model.Commitment{}, err
	}
	var out model.Commitment
	path := "/api/v1/commitments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, map[string]model.Status{"status": status}, &out); err != nil {
		return model.Commitment{}, err
	}
	return out, nil
}

// InsertSession saves a finished session. The server attributes it to the
// signed-in user, if any.
func (c *Client) InsertSession(ctx context.Context, s model.Session) (model.Session, error) {
	req := model.NewSession{
		Mode:            s.Mode,
		Goal:            s.Goal,
		DurationMinutes: s.DurationMinutes,
		FocusRating:     s.FocusRating,
		StartedAt:       s.StartedAt,
	}
	if s.EndedAt != nil {
		req.EndedAt = *s.EndedAt
	}
	var out model.Session
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", req, &out); err != nil {
		return model.Session{}, err
	}
	return out, nil
}

// ListSessions returns the signed-in user's sessions
func (c *Client) ListSessions(ctx context.Context, opts store.ListOptions) ([]model.Session, error) {
	if c.token() == "" {
		return nil, store.ErrUnauthorized
	}
	out := []model.Session{}
	path := "/api/v1/sessions?limit=" + strconv.Itoa(opts.EffectiveLimit())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
