// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/gatekit/gatekit/internal/models"
)

// ReplaceActiveCode retires any active code for the (email, purpose)
// pair and inserts the new one, in a single transaction. The retired
// code is marked consumed without ever having matched.
func (r *Repository) ReplaceActiveCode(ctx context.Context, code *models.OneTimeCode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE one_time_codes SET consumed = 1, consumed_at = ?
		 WHERE email = ? AND purpose = ? AND consumed = 0`,
		time.Now().UTC(), code.Email, code.Purpose); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO one_time_codes (email, purpose, code, attempts, consumed, issued_at, expires_at)
		 VALUES (?, ?, ?, 0, 0, ?, ?)`,
		code.Email, code.Purpose, code.Code, code.IssuedAt, code.ExpiresAt)
	if err != nil {
		return err
	}
	if code.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	return tx.Commit()
}

// ConsumeCode marks the matching active code consumed and reports
// whether it did. The guard conditions (unconsumed, unexpired, under
// the attempt cap, exact code match) live in the UPDATE itself, so two
// concurrent calls with the same valid code can never both succeed.
func (r *Repository) ConsumeCode(ctx context.Context, email, purpose, code string, maxAttempts int, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_codes SET consumed = 1, consumed_at = ?
		 WHERE email = ? AND purpose = ? AND code = ?
		   AND consumed = 0 AND attempts < ? AND expires_at > ?`,
		now, email, purpose, code, maxAttempts, now)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountWrongAttempt increments the attempt counter of the active code
// for the pair, if one exists. The increment is a single conditional
// UPDATE so concurrent wrong guesses cannot under-count.
func (r *Repository) CountWrongAttempt(ctx context.Context, email, purpose string, maxAttempts int, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE one_time_codes SET attempts = attempts + 1
		 WHERE email = ? AND purpose = ?
		   AND consumed = 0 AND attempts < ? AND expires_at > ?`,
		email, purpose, maxAttempts, now)
	return err
}

// GetActiveCode returns the unconsumed, unexpired code for the pair.
func (r *Repository) GetActiveCode(ctx context.Context, email, purpose string, now time.Time) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := r.db.GetContext(ctx, &code,
		`SELECT * FROM one_time_codes
		 WHERE email = ? AND purpose = ? AND consumed = 0 AND expires_at > ?
		 ORDER BY id DESC LIMIT 1`,
		email, purpose, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &code, nil
}

// DeleteExpiredCodes removes codes past their expiry.
func (r *Repository) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
