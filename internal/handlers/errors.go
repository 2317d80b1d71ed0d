// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatekit/gatekit/internal/services/auth"
	"github.com/gatekit/gatekit/internal/services/recovery"
	"github.com/labstack/echo/v4"
)

// errorBody is the uniform JSON error payload.
type errorBody struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// fail maps service errors to responses. Validation details are passed
// through for non-sensitive fields; code failures stay opaque; anything
// unrecognized is logged in full and reduced to a generic server error.
func fail(c echo.Context, err error) error {
	var validation *auth.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Field:   validation.Field,
			Message: validation.Message,
		})
	case errors.Is(err, recovery.ErrInvalidOrExpiredCode):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid_or_expired_code"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid_credentials"})
	case errors.Is(err, auth.ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Field:   "email",
			Message: "invalid email address",
		})
	case errors.Is(err, auth.ErrUserExists):
		return c.JSON(http.StatusConflict, errorBody{Error: "email_taken"})
	default:
		slog.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}
