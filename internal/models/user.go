// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the database row types.
package models

import "time"

// User is an account record. Emails are stored lowercased and are
// unique case-insensitively.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64     `db:"id" json:"-"`
	PublicID      string    `db:"public_id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
