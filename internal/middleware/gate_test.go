// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatekit/gatekit/internal/auth"
	"github.com/gatekit/gatekit/internal/config"
	gatemw "github.com/gatekit/gatekit/internal/middleware"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/services/session"
	"github.com/gatekit/gatekit/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	prefixes := []string{"/dashboard", "/account"}

	tests := []struct {
		name          string
		path          string
		authenticated bool
		want          gatemw.Decision
	}{
		{"anonymous on protected prefix", "/dashboard", false, gatemw.RedirectToSignIn},
		{"anonymous below protected prefix", "/dashboard/settings", false, gatemw.RedirectToSignIn},
		{"anonymous on second prefix", "/account/billing", false, gatemw.RedirectToSignIn},
		{"anonymous on open path", "/", false, gatemw.Allow},
		{"anonymous on sign-in path", "/auth/login", false, gatemw.Allow},
		{"authenticated on protected prefix", "/dashboard", true, gatemw.Allow},
		{"authenticated on open path", "/about", true, gatemw.Allow},
		{"no prefixes configured", "/dashboard", false, gatemw.Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := prefixes
			if tt.name == "no prefixes configured" {
				ps = nil
			}
			assert.Equal(t, tt.want, gatemw.Decide(ps, tt.path, tt.authenticated))
		})
	}
}

func newGateManager(t *testing.T, repo *repository.Repository) *session.Manager {
	t.Helper()
	m, err := session.NewManager(repo, &config.SessionConfig{
		CookieName:         "_session",
		HashKey:            strings.Repeat("ef", 32),
		Duration:           24 * time.Hour,
		RememberMeDuration: 720 * time.Hour,
	}, false)
	require.NoError(t, err)
	return m
}

func newGateEcho(t *testing.T, repo *repository.Repository, sessions *session.Manager, handlerRan *bool) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(gatemw.LoadIdentity(sessions, repo))
	e.Use(gatemw.Gate(&config.GateConfig{
		ProtectedPrefixes: []string{"/dashboard"},
		SignInPath:        "/auth/login",
	}))
	e.GET("/dashboard", func(c echo.Context) error {
		*handlerRan = true
		id := auth.GetIdentity(c.Request().Context())
		if id == nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, id)
	})
	e.GET("/public", func(c echo.Context) error {
		*handlerRan = true
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestGate_AnonymousIsRedirected(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	sessions := newGateManager(t, repo)

	var handlerRan bool
	e := newGateEcho(t, repo, sessions, &handlerRan)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	assert.False(t, handlerRan, "downstream handler must not run on redirect")
}

func TestGate_AnonymousOnOpenPathPasses(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	sessions := newGateManager(t, repo)

	var handlerRan bool
	e := newGateEcho(t, repo, sessions, &handlerRan)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerRan)
}

func TestGate_ValidSessionPasses(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	sessions := newGateManager(t, repo)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := sessions.Create(ctx, user.ID, false)
	require.NoError(t, err)

	var handlerRan bool
	e := newGateEcho(t, repo, sessions, &handlerRan)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerRan)
}

func TestGate_InvalidatedSessionIsRedirected(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	sessions := newGateManager(t, repo)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := sessions.Create(ctx, user.ID, false)
	require.NoError(t, err)

	_, err = sessions.InvalidateAll(ctx, user.ID)
	require.NoError(t, err)

	var handlerRan bool
	e := newGateEcho(t, repo, sessions, &handlerRan)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, handlerRan)
}

func TestGate_TamperedCookieIsRedirected(t *testing.T) {
	ctx := context.Background()
	_, repo := testutil.NewTestDB(t)
	sessions := newGateManager(t, repo)
	user := testutil.NewTestUser(t, repo, "alice@example.com")

	cookie, err := sessions.Create(ctx, user.ID, false)
	require.NoError(t, err)
	cookie.Value = "garbage"

	var handlerRan bool
	e := newGateEcho(t, repo, sessions, &handlerRan)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, handlerRan)
}
