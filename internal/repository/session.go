// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/gatekit/gatekit/internal/models"
)

// CreateSession inserts a new session record.
func (r *Repository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, remember_me, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.RememberMe, session.CreatedAt, session.ExpiresAt)
	return err
}

// GetSessionByToken retrieves a session by its token. Expiry is checked
// by the caller; deleted tokens yield ErrNotFound.
func (r *Repository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, `SELECT * FROM sessions WHERE token = ?`, token); err != nil {
		return nil, wrapError(err)
	}
	return &session, nil
}

// DeleteSession removes a single session.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteUserSessions removes every session belonging to a user and
// returns how many were removed.
func (r *Repository) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredSessions removes sessions past their expiry.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
