// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/gatekit/gatekit/internal/services/otp"
	"github.com/gatekit/gatekit/internal/services/recovery"
	"github.com/labstack/echo/v4"
)

// OTPHandlers contains the one-time-code flow handlers.
type OTPHandlers struct {
	recovery *recovery.Service
}

// NewOTP creates an OTPHandlers instance.
func NewOTP(recoveryService *recovery.Service) *OTPHandlers {
	return &OTPHandlers{recovery: recoveryService}
}

// SendRequest is the body of POST /auth/otp/send.
type SendRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// Send issues a one-time code. It answers 202 with an identical body
// whether or not the address has an account; only malformed input gets
// a 400. A failed mail dispatch is logged and still answered 202, since
// the stored code remains reachable by a retried request.
func (h *OTPHandlers) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Field:   "email",
			Message: "invalid email address",
		})
	}

	var err error
	switch req.Type {
	case otp.PurposePasswordReset:
		err = h.recovery.RequestReset(c.Request().Context(), req.Email)
	case otp.PurposeVerifyEmail:
		err = h.recovery.RequestVerification(c.Request().Context(), req.Email)
	default:
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Field:   "type",
			Message: "unknown code type",
		})
	}

	if err != nil {
		if errors.Is(err, otp.ErrDispatchFailed) {
			slog.Warn("code issued but not delivered", "type", req.Type)
		} else {
			return fail(c, err)
		}
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "check your email"})
}

// ResetPasswordRequest is the body of POST /auth/otp/reset-password.
type ResetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

// ResetPassword commits a password reset.
func (h *OTPHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	if err := h.recovery.CommitReset(c.Request().Context(), req.Email, req.OTP, req.Password); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyEmailRequest is the body of POST /auth/otp/verify-email.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyEmail confirms an address with a one-time code.
func (h *OTPHandlers) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	if err := h.recovery.ConfirmVerification(c.Request().Context(), req.Email, req.OTP); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
