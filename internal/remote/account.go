package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/existflow/lockin/internal/model"
)

type authResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      model.Identity `json:"user"`
}

// IsLoggedIn returns true if a token is saved
func (c *Client) IsLoggedIn() bool {
	return c.token() != ""
}

// Identity returns the signed-in user, or nil
func (c *Client) Identity() *model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return nil
	}
	u := c.auth.User
	return &u
}

// Register creates an account and signs in
func (c *Client) Register(ctx context.Context, email, password string) (model.Identity, error) {
	return c.authenticate(ctx, "/api/v1/register", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Login signs in with email and password
func (c *Client) Login(ctx context.Context, email, password string) (model.Identity, error) {
	return c.authenticate(ctx, "/api/v1/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RequestMagicLink asks the server to send a login link. A development
// server also returns the token, which is passed back here.
func (c *Client) RequestMagicLink(ctx context.Context, email string) (string, error) {
	var out struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/magic-link", map[string]string{"email": email}, &out); err != nil {
		return "", fmt.Errorf("magic link request failed: %w", err)
	}
	return out.Token, nil
}

// VerifyMagicLink exchanges a magic link token for a session
func (c *Client) VerifyMagicLink(ctx context.Context, token string) (model.Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/magic-link/"+url.PathEscape(token), nil, &out); err != nil {
		return model.Identity{}, fmt.Errorf("magic link verification failed: %w", err)
	}
	return c.storeAuth(out)
}

// Me fetches the signed-in user from the server
func (c *Client) Me(ctx context.Context) (model.Identity, error) {
	var out model.Identity
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &out); err != nil {
		return model.Identity{}, err
	}
	return out, nil
}

// Logout revokes the token on the server, best effort, and forgets it locally
func (c *Client) Logout(ctx context.Context) error {
	if c.IsLoggedIn() {
		_ = c.do(ctx, http.MethodPost, "/api/v1/logout", nil, nil)
	}

	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
	return clearAuth(c.authPath)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (model.Identity, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return model.Identity{}, err
	}
	return c.storeAuth(out)
}

func (c *Client) storeAuth(resp authResponse) (model.Identity, error) {
	st := &AuthState{Token: resp.Token, ExpiresAt: resp.ExpiresAt, User: resp.User}

	if err := saveAuth(c.authPath, st); err != nil {
		return model.Identity{}, fmt.Errorf("failed to save auth state: %w", err)
	}

	c.mu.Lock()
	c.auth = st
	c.mu.Unlock()
	return resp.User, nil
}
