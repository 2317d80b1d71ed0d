// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session manages server-side sessions carried by a signed
// cookie holding an opaque token.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatekit/gatekit/internal/config"
	"github.com/gatekit/gatekit/internal/models"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gorilla/securecookie"
)

// tokenBytes is the entropy of a session token (256 bits).
const tokenBytes = 32

// ErrNoSession is returned when a request carries no resolvable,
// unexpired session.
var ErrNoSession = errors.New("no valid session")

// Manager creates, resolves and invalidates sessions.
type Manager struct {
	repo               *repository.Repository
	codec              *securecookie.SecureCookie
	cookieName         string
	cookieSecure       bool
	duration           time.Duration
	rememberMeDuration time.Duration
}

// NewManager creates a session manager. The cookie is HMAC-signed with
// the configured hash key; a block key additionally encrypts it. With
// no key configured a random one is generated, which invalidates all
// cookies on restart.
func NewManager(repo *repository.Repository, cfg *config.SessionConfig, cookieSecure bool) (*Manager, error) {
	hashKey, err := loadKey(cfg.HashKey, "session hash key")
	if err != nil {
		return nil, err
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		if blockKey, err = hex.DecodeString(cfg.BlockKey); err != nil {
			return nil, fmt.Errorf("invalid session block key: %w", err)
		}
	}

	return &Manager{
		repo:               repo,
		codec:              securecookie.New(hashKey, blockKey),
		cookieName:         cfg.CookieName,
		cookieSecure:       cookieSecure,
		duration:           cfg.Duration,
		rememberMeDuration: cfg.RememberMeDuration,
	}, nil
}

func loadKey(hexKey, what string) ([]byte, error) {
	if hexKey == "" {
		slog.Warn("no key configured, generating a volatile one", "key", what)
		return securecookie.GenerateRandomKey(32), nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", what, err)
	}
	return key, nil
}

// Create stores a new session for the user and returns the cookie
// carrying its token.
func (m *Manager) Create(ctx context.Context, userID int64, rememberMe bool) (*http.Cookie, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	lifetime := m.duration
	if rememberMe {
		lifetime = m.rememberMeDuration
	}

	now := time.Now().UTC()
	session := &models.Session{
		Token:      token,
		UserID:     userID,
		RememberMe: rememberMe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(lifetime),
	}
	if err := m.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	encoded, err := m.codec.Encode(m.cookieName, token)
	if err != nil {
		return nil, fmt.Errorf("encoding session cookie: %w", err)
	}

	cookie := m.baseCookie()
	cookie.Value = encoded
	if rememberMe {
		cookie.MaxAge = int(lifetime.Seconds())
	}
	return cookie, nil
}

// Resolve returns the unexpired session a request carries, or
// ErrNoSession. An expired row is deleted on sight so the token can
// never resolve again.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*models.Session, error) {
	token, err := m.tokenFromRequest(r)
	if err != nil {
		return nil, ErrNoSession
	}

	session, err := m.repo.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	if session.Expired(time.Now().UTC()) {
		if err := m.repo.DeleteSession(ctx, token); err != nil {
			slog.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrNoSession
	}

	return session, nil
}

// Destroy deletes the session a request carries, if any.
func (m *Manager) Destroy(ctx context.Context, r *http.Request) error {
	token, err := m.tokenFromRequest(r)
	if err != nil {
		return nil
	}
	return m.repo.DeleteSession(ctx, token)
}

// InvalidateAll deletes every session of a user and returns the count.
func (m *Manager) InvalidateAll(ctx context.Context, userID int64) (int64, error) {
	return m.repo.DeleteUserSessions(ctx, userID)
}

// Clear returns an expired cookie that removes the session cookie from
// the client.
func (m *Manager) Clear() *http.Cookie {
	cookie := m.baseCookie()
	cookie.Value = ""
	cookie.MaxAge = -1
	return cookie
}

func (m *Manager) baseCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) tokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return "", err
	}
	var token string
	if err := m.codec.Decode(m.cookieName, cookie.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
