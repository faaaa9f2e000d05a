package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medstargenx/accounts/internal/api/handler"
	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/pkg/logger"
)

// kindStatus maps each error kind to its HTTP status.
var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrInvalidOperation, http.StatusBadRequest},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Reports validation failures field by field.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the standard envelope: {"success": false, "message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.Response) {
	// Echo's own errors (bind failures, 404 from router, rate limiter, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		if he.Code >= http.StatusInternalServerError {
			logUnexpected(log, c, err)
			msg = http.StatusText(he.Code)
		}
		return he.Code, handler.Response{Message: msg}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, handler.Response{Message: "validation failed", Errors: verr.Fields}
	}

	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status, handler.Response{Message: clientMessage(err, ks.kind)}
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	logUnexpected(log, c, err)
	return http.StatusInternalServerError, handler.Response{Message: "internal server error"}
}

// clientMessage returns the client-safe text of a classified error. Wrapping
// context added on the way up is dropped.
func clientMessage(err, kind error) string {
	var ke *domain.KindError
	if errors.As(err, &ke) {
		return ke.Msg
	}
	var dup *domain.DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Error()
	}
	return kind.Error()
}

func logUnexpected(fallback zerolog.Logger, c echo.Context, err error) {
	logger.FromContext(c.Request().Context(), fallback).Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}
