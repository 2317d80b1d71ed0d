// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Session is a server-side session record keyed by an opaque token.
// A token that has been deleted or whose expiry has passed never
// resolves to a user again.
type Session struct { //nolint:govet // fieldalignment: readability over optimization
	Token      string    `db:"token" json:"-"`
	UserID     int64     `db:"user_id" json:"user_id"`
	RememberMe bool      `db:"remember_me" json:"remember_me"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
