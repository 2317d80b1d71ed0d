// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gatekit/gatekit/internal/database"
	"github.com/gatekit/gatekit/internal/models"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates a file-backed SQLite database in a temp directory.
// A file (rather than :memory:) keeps the schema visible across pooled
// connections, which the concurrency tests rely on.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a user with the given email and password "hunter2222".
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	return NewTestUserWithPassword(t, repo, email, "hunter2222")
}

// NewTestUserWithPassword creates a user with a chosen password.
func NewTestUserWithPassword(t *testing.T, repo *repository.Repository, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		PublicID:     uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// FakeDispatcher records dispatched codes instead of sending mail.
type FakeDispatcher struct {
	mu    sync.Mutex
	Err   error
	Sent  []SentCode
	Calls int
}

// SentCode is one recorded dispatch.
type SentCode struct {
	To      string
	Purpose string
	Code    string
}

// SendCode implements the dispatcher interface.
func (d *FakeDispatcher) SendCode(_ context.Context, to, purpose, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return d.Err
	}
	d.Sent = append(d.Sent, SentCode{To: to, Purpose: purpose, Code: code})
	return nil
}

// LastCode returns the most recently dispatched code for an address.
func (d *FakeDispatcher) LastCode(to string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.Sent) - 1; i >= 0; i-- {
		if d.Sent[i].To == to {
			return d.Sent[i].Code
		}
	}
	return ""
}
