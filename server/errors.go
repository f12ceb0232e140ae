package server

import (
	"errors"
	"net/http"

	"github.com/existflow/lockin/internal/logger"
	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
	"github.com/labstack/echo/v4"
)

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// writeError maps domain errors to HTTP status codes
func writeError(c echo.Context, err error) error {
	switch {
	case model.IsValidation(err):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUnauthorized):
		return errorJSON(c, http.StatusUnauthorized, "authorization required")
	case errors.Is(err, ErrConflict):
		return errorJSON(c, http.StatusConflict, "already exists")
	}

	logger.Error("Request failed",
		logger.F("method", c.Request().Method),
		logger.F("path", c.Path()),
		logger.Err(err))
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}
