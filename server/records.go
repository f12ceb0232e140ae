package server

import (
	"net/http"
	"strconv"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/labstack/echo/v4"
)

// maxListLimit caps ?limit on list endpoints
const maxListLimit = 200

func listOptions(c echo.Context) (store.ListOptions, error) {
	var opts store.ListOptions
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxListLimit {
			return opts, &model.ValidationError{Fields: []string{"limit (range)"}}
		}
		opts.Limit = n
	}
	return opts, nil
}

// handleCreateCommitment inserts a commitment and announces it on the feed
func (s *Server) handleCreateCommitment(c echo.Context) error {
	var req model.NewCommitment
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(c, err)
	}

	rec, err := s.records.InsertCommitment(c.Request().Context(), req.Commitment())
	if err != nil {
		return writeError(c, err)
	}

	recordsWritten.WithLabelValues("commitment", "insert").Inc()
	s.hub.Broadcast(store.EventInsert, rec)
	logger.Info("Commitment created", logger.F("id", rec.ID), logger.F("minutes", rec.DurationMinutes))
	return c.JSON(http.StatusCreated, rec)
}

// handleListCommitments returns the newest commitments
func (s *Server) handleListCommitments(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return writeError(c, err)
	}

	items, err := s.records.ListCommitments(c.Request().Context(), opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

// handleUpdateCommitment applies the completed transition
func (s *Server) handleUpdateCommitment(c echo.Context) error {
	var body statusRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	req := model.StatusUpdate{ID: c.Param("id"), Status: body.Status}
	if err := req.Validate(); err != nil {
		return writeError(c, err)
	}

	rec, err := s.records.UpdateCommitmentStatus(c.Request().Context(), req.ID, req.Status)
	if err != nil {
		return writeError(c, err)
	}

	recordsWritten.WithLabelValues("commitment", "complete").Inc()
	s.hub.Broadcast(store.EventUpdate, rec)
	logger.Info("Commitment completed", logger.F("id", rec.ID))
	return c.JSON(http.StatusOK, rec)
}

// handleCreateSession stores a finished session. The owner comes from the
// bearer token only; anonymous sessions are kept without one.
func (s *Server) handleCreateSession(c echo.Context) error {
	var req model.NewSession
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	req.UserID = nil
	if id, err := currentUser(c); err == nil {
		req.UserID = &id
	}
	if err := req.Validate(); err != nil {
		return writeError(c, err)
	}

	rec, err := s.records.InsertSession(c.Request().Context(), req.Session())
	if err != nil {
		return writeError(c, err)
	}

	recordsWritten.WithLabelValues("session", "insert").Inc()
	return c.JSON(http.StatusCreated, rec)
}

// handleListSessions returns the caller's session history
func (s *Server) handleListSessions(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	opts, err := listOptions(c)
	if err != nil {
		return writeError(c, err)
	}
	opts.UserID = userID

	items, err := s.records.ListSessions(c.Request().Context(), opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
