// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatekit/gatekit/internal/config"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/services/session"
	"github.com/gatekit/gatekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, repo *repository.Repository, duration time.Duration) *session.Manager {
	t.Helper()
	cfg := &config.SessionConfig{
		CookieName:         "_session",
		HashKey:            strings.Repeat("ab", 32),
		Duration:           duration,
		RememberMeDuration: 30 * 24 * time.Hour,
	}
	m, err := session.NewManager(repo, cfg, false)
	require.NoError(t, err)
	return m
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return req
}

func TestCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := m.Create(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Zero(t, cookie.MaxAge, "plain sessions are cookie-session scoped")

	sess, err := m.Resolve(ctx, requestWithCookie(cookie))
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.False(t, sess.RememberMe)
}

func TestCreate_RememberMeSetsMaxAge(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := m.Create(ctx, user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	sess, err := m.Resolve(ctx, requestWithCookie(cookie))
	require.NoError(t, err)
	assert.True(t, sess.RememberMe)
}

func TestResolve_NoCookie(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := m.Resolve(context.Background(), req)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestResolve_TamperedCookie(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := m.Create(ctx, user.ID, false)
	require.NoError(t, err)

	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	_, err = m.Resolve(ctx, requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestResolve_ExpiredSessionIsDeleted(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, -time.Minute)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := m.Create(ctx, user.ID, false)
	require.NoError(t, err)

	_, err = m.Resolve(ctx, requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrNoSession)

	// The row is gone, so a second resolve fails the same way.
	_, err = m.Resolve(ctx, requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := m.Create(ctx, user.ID, false)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, requestWithCookie(cookie)))

	_, err = m.Resolve(ctx, requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestDestroy_NoCookieIsNoop(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NoError(t, m.Destroy(context.Background(), req))
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)
	alice := testutil.NewTestUser(t, repo, "alice@example.com")
	bob := testutil.NewTestUser(t, repo, "bob@example.com")

	c1, err := m.Create(ctx, alice.ID, false)
	require.NoError(t, err)
	c2, err := m.Create(ctx, alice.ID, true)
	require.NoError(t, err)
	c3, err := m.Create(ctx, bob.ID, false)
	require.NoError(t, err)

	count, err := m.InvalidateAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = m.Resolve(ctx, requestWithCookie(c1))
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = m.Resolve(ctx, requestWithCookie(c2))
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Bob's session is untouched.
	sess, err := m.Resolve(ctx, requestWithCookie(c3))
	require.NoError(t, err)
	assert.Equal(t, bob.ID, sess.UserID)
}

func TestClear(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	m := newManager(t, repo, 24*time.Hour)

	cookie := m.Clear()
	assert.Equal(t, "_session", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}
