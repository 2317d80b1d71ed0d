// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides the request-scoped caller identity.
package auth

import (
	"context"

	"github.com/gatekit/gatekit/internal/ctxkeys"
)

// Identity is the resolved caller attached to a request context by the
// gate middleware. Requests without a session have no Identity.
type Identity struct {
	UserID        int64  `json:"-"`
	PublicID      string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxkeys.Identity{}, id)
}

// GetIdentity returns the identity from the context, or nil.
func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(ctxkeys.Identity{}).(*Identity); ok {
		return id
	}
	return nil
}

// IsAuthenticated reports whether the context carries an identity.
func IsAuthenticated(ctx context.Context) bool {
	return GetIdentity(ctx) != nil
}
