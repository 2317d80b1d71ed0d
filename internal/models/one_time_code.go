// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OneTimeCode is a short-lived numeric code bound to an email address
// and a purpose. At most one active (unconsumed, unexpired) code exists
// per (email, purpose) pair; issuing a new one retires the old one.
type OneTimeCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64      `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Purpose    string     `db:"purpose" json:"purpose"`
	Code       string     `db:"code" json:"-"`
	Attempts   int64      `db:"attempts" json:"attempts"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	IssuedAt   time.Time  `db:"issued_at" json:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}
