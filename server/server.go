// Package server is the remote record store: an echo JSON API over
// PostgreSQL with a websocket change feed for commitments.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Config holds server settings
type Config struct {
	// APIKey, when set, must be sent as X-Api-Key on every /api/v1 call
	APIKey string
	// WriteRate limits public writes per client IP, in requests per second.
	// Zero disables the limit.
	WriteRate float64
	// ExposeMagicTokens returns magic link tokens in the response instead
	// of relying on email delivery. Development only.
	ExposeMagicTokens bool
	// TokenTTL is the lifetime of bearer tokens
	TokenTTL time.Duration
	// MagicLinkTTL is the lifetime of magic links
	MagicLinkTTL time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		WriteRate:    5,
		TokenTTL:     30 * 24 * time.Hour,
		MagicLinkTTL: 15 * time.Minute,
	}
}

// Server is the LockIn API server
type Server struct {
	records  Records
	accounts Accounts
	cfg      Config
	hub      *Hub
	echo     *echo.Echo
	now      func() time.Time
}

// New creates a server over the given stores
func New(records Records, accounts Accounts, cfg Config) *Server {
	def := DefaultConfig()
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.MagicLinkTTL <= 0 {
		cfg.MagicLinkTTL = def.MagicLinkTTL
	}

	s := &Server{
		records:  records,
		accounts: accounts,
		cfg:      cfg,
		hub:      NewHub(),
		now:      time.Now,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(metricsMiddleware)

	// Health check and metrics
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1
	api := e.Group("/api/v1")
	api.Use(s.apiKeyMiddleware)

	writes := []echo.MiddlewareFunc{}
	if s.cfg.WriteRate > 0 {
		writes = append(writes, middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.WriteRate))))
	}

	// Records
	api.GET("/commitments", s.handleListCommitments)
	api.POST("/commitments", s.handleCreateCommitment, writes...)
	api.PATCH("/commitments/:id", s.handleUpdateCommitment, writes...)
	api.POST("/sessions", s.handleCreateSession, append(writes, s.optionalAuth)...)
	api.GET("/sessions", s.handleListSessions, s.authMiddleware)
	api.GET("/feed", s.handleFeed)

	// Auth endpoints (public)
	api.POST("/register", s.handleRegister, writes...)
	api.POST("/login", s.handleLogin, writes...)
	api.POST("/magic-link", s.handleMagicLink, writes...)
	api.GET("/magic-link/:token", s.handleMagicLinkVerify)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/me", s.handleMe)
	protected.POST("/logout", s.handleLogout)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Hub returns the change feed hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts the server
func (s *Server) Start(addr string) error {
	logger.Info("Server starting", logger.F("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown disconnects feed clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
