package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by every endpoint that issues a token
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expires_at"`
	User      model.Identity `json:"user"`
}

func identity(u model.User) model.Identity {
	return model.Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarColor: u.AvatarColor,
	}
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	// Validate
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "email and password required")
	}

	if len(req.Password) < 8 {
		return errorJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return writeError(c, err)
	}

	u := newUser(req.Email)
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		u.DisplayName = name
	}
	u.PasswordHash = string(hash)

	u, err = s.accounts.CreateUser(c.Request().Context(), u)
	if err != nil {
		return writeError(c, err)
	}

	logger.Info("User registered", logger.F("user_id", u.ID))
	return s.issueToken(c, u)
}

// handleLogin handles password login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	u, err := s.accounts.UserByEmail(c.Request().Context(), strings.TrimSpace(req.Email))
	if err != nil || u.PasswordHash == "" {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("User logged in", logger.F("user_id", u.ID))
	return s.issueToken(c, u)
}

// handleMe returns current user info
func (s *Server) handleMe(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}

	u, err := s.accounts.UserByID(c.Request().Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, identity(u))
}

// handleLogout revokes the presented token
func (s *Server) handleLogout(c echo.Context) error {
	token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	if err := s.accounts.DeleteToken(c.Request().Context(), token); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func newUser(email string) model.User {
	return model.User{
		Email:       email,
		DisplayName: model.DisplayNameFromEmail(email),
		AvatarColor: model.RandomAvatarColor(),
	}
}

// issueToken creates a bearer token for u and writes the auth response
func (s *Server) issueToken(c echo.Context, u model.User) error {
	token, err := randomToken()
	if err != nil {
		return writeError(c, err)
	}

	expiresAt := s.now().Add(s.cfg.TokenTTL).UTC()
	err = s.accounts.CreateToken(c.Request().Context(), model.AuthToken{
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      identity(u),
	})
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
