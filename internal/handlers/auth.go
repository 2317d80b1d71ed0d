// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	identity "github.com/gatekit/gatekit/internal/auth"
	"github.com/gatekit/gatekit/internal/services/auth"
	"github.com/gatekit/gatekit/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains the sign-up/sign-in handlers.
type AuthHandlers struct {
	auth     *auth.Service
	sessions *session.Manager
}

// NewAuth creates an AuthHandlers instance.
func NewAuth(authService *auth.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     authService,
		sessions: sessions,
	}
}

// RegisterRequest is the sign-up request body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates an account and signs the user in.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	user, err := h.auth.Register(c.Request().Context(), auth.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return fail(c, err)
	}

	cookie, err := h.sessions.Create(c.Request().Context(), user.ID, false)
	if err != nil {
		return fail(c, err)
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusCreated, user)
}

// LoginRequest is the sign-in request body.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login authenticates a user and issues a session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	cookie, err := h.sessions.Create(c.Request().Context(), user.ID, req.RememberMe)
	if err != nil {
		return fail(c, err)
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, user)
}

// Logout invalidates the current session and clears the cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(c.Request().Context(), c.Request()); err != nil {
		return fail(c, err)
	}
	c.SetCookie(h.sessions.Clear())
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in caller.
func (h *AuthHandlers) Me(c echo.Context) error {
	id := identity.GetIdentity(c.Request().Context())
	if id == nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "not_authenticated"})
	}
	return c.JSON(http.StatusOK, id)
}

// ChangePasswordRequest is the authenticated password-change body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the signed-in caller's password.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	id := identity.GetIdentity(c.Request().Context())
	if id == nil {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "not_authenticated"})
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_request"})
	}

	if err := h.auth.ChangePassword(c.Request().Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
