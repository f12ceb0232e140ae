package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/labstack/echo/v4"
)

type magicLinkRequest struct {
	Email string `json:"email"`
}

const magicLinkMessage = "a login link has been sent"

// handleMagicLink creates a magic link for passwordless login. Accounts
// are created on first verification, so any address gets a link.
func (s *Server) handleMagicLink(c echo.Context) error {
	var req magicLinkRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errorJSON(c, http.StatusBadRequest, "email required")
	}

	token, err := randomToken()
	if err != nil {
		return writeError(c, err)
	}

	err = s.accounts.CreateMagicLink(c.Request().Context(), model.MagicLink{
		Email:     req.Email,
		Token:     token,
		ExpiresAt: s.now().Add(s.cfg.MagicLinkTTL).UTC(),
	})
	if err != nil {
		return writeError(c, err)
	}

	logger.Info("Magic link created", logger.F("email", req.Email))

	resp := map[string]string{"message": magicLinkMessage}
	if s.cfg.ExposeMagicTokens {
		resp["token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

// handleMagicLinkVerify consumes a magic link and issues a token
func (s *Server) handleMagicLinkVerify(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return errorJSON(c, http.StatusBadRequest, "token required")
	}

	ctx := c.Request().Context()
	link, err := s.accounts.ConsumeMagicLink(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusBadRequest, "invalid token")
	}
	if err != nil {
		return writeError(c, err)
	}

	if link.Used {
		return errorJSON(c, http.StatusBadRequest, "token already used")
	}

	if link.IsExpired(s.now()) {
		return errorJSON(c, http.StatusBadRequest, "token expired")
	}

	u, err := s.accounts.UserByEmail(ctx, link.Email)
	if errors.Is(err, store.ErrNotFound) {
		u, err = s.accounts.CreateUser(ctx, newUser(link.Email))
	}
	if err != nil {
		return writeError(c, err)
	}

	logger.Info("Magic link login", logger.F("user_id", u.ID))
	return s.issueToken(c, u)
}
