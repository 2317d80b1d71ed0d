// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware implements the session-gated request gateway.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatekit/gatekit/internal/auth"
	"github.com/gatekit/gatekit/internal/config"
	"github.com/gatekit/gatekit/internal/models"
	"github.com/gatekit/gatekit/internal/services/session"
	"github.com/labstack/echo/v4"
)

// UserLoader loads the full account for a resolved session.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Decision is the outcome of the gate policy.
type Decision int

const (
	Allow Decision = iota
	RedirectToSignIn
)

// Decide is the gate policy. It is pure and total: given a path and
// whether the caller carries an identity, it yields exactly one
// decision. A path is protected when it matches a configured prefix;
// everything else is allowed regardless of identity. The sign-in path
// itself is kept out of the protected set by config normalization, so
// no loop check is needed here.
func Decide(prefixes []string, path string, authenticated bool) Decision {
	if authenticated {
		return Allow
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return RedirectToSignIn
		}
	}
	return Allow
}

// LoadIdentity resolves the request's session and attaches the caller
// identity to the request context. Requests without a valid session
// proceed anonymously; only store failures abort.
func LoadIdentity(sessions *session.Manager, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			sess, err := sessions.Resolve(r.Context(), r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					slog.Error("session resolution failed", "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError)
				}
				return next(c)
			}

			user, err := users.GetUserByID(r.Context(), sess.UserID)
			if err != nil {
				// Account gone; the session is stale, treat as anonymous.
				slog.Warn("session user missing", "error", err)
				return next(c)
			}

			identity := &auth.Identity{
				UserID:        user.ID,
				PublicID:      user.PublicID,
				Email:         user.Email,
				Name:          user.Name,
				EmailVerified: user.EmailVerified,
			}
			c.SetRequest(r.WithContext(auth.WithIdentity(r.Context(), identity)))
			return next(c)
		}
	}
}

// Gate enforces the policy. On RedirectToSignIn the downstream handler
// never runs, so a rejected request cannot cause partial side effects.
func Gate(cfg *config.GateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authenticated := auth.IsAuthenticated(c.Request().Context())
			switch Decide(cfg.ProtectedPrefixes, c.Request().URL.Path, authenticated) {
			case RedirectToSignIn:
				return c.Redirect(http.StatusSeeOther, cfg.SignInPath)
			default:
				return next(c)
			}
		}
	}
}
