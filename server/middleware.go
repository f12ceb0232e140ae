package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/store"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// requestLogger logs every request and its outcome
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		logger.Info("HTTP Request",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("remote", c.RealIP()),
			logger.F("duration", time.Since(start).String()))

		return nil
	}
}

// metricsMiddleware records request counts and latency by route
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// apiKeyMiddleware requires X-Api-Key when the server has a key configured
func (s *Server) apiKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.APIKey == "" {
			return next(c)
		}
		key := c.Request().Header.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) != 1 {
			return errorJSON(c, http.StatusUnauthorized, "invalid api key")
		}
		return next(c)
	}
}

// bearerUser resolves the Authorization header to a user ID
func (s *Server) bearerUser(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", errors.New("authorization required")
	}

	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		return "", errors.New("invalid authorization format")
	}

	t, err := s.accounts.Token(c.Request().Context(), token)
	if err != nil {
		return "", errors.New("invalid token")
	}
	if t.IsExpired(s.now()) {
		return "", errors.New("token expired")
	}
	return t.UserID, nil
}

// authMiddleware requires a valid bearer token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.bearerUser(c)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, err.Error())
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

// optionalAuth attaches the user when a valid token is present and rejects
// only a token that is present but invalid
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") == "" {
			return next(c)
		}
		userID, err := s.bearerUser(c)
		if err != nil {
			return errorJSON(c, http.StatusUnauthorized, err.Error())
		}
		c.Set(userIDKey, userID)
		return next(c)
	}
}

// currentUser returns the authenticated user ID or store.ErrUnauthorized
func currentUser(c echo.Context) (string, error) {
	id, _ := c.Get(userIDKey).(string)
	if id == "" {
		return "", store.ErrUnauthorized
	}
	return id, nil
}
