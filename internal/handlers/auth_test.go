// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gatekit/gatekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","name":"Alice","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)

	// The fresh session works.
	me := a.do(http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "alice@example.com")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	rec := a.do(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"correct horse"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email_taken")
}

func TestRegister_WeakPassword(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestLogin(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	rec := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"hunter2222"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionCookie(t, rec)
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	rec := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_credentials")
}

func TestLogin_UnknownUserSameBody(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	wrongPassword := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong password"}`)
	unknownUser := a.do(http.MethodPost, "/auth/login",
		`{"email":"nobody@example.com","password":"wrong password"}`)

	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	login := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"hunter2222"}`)
	require.Equal(t, http.StatusOK, login.Code)
	cookie := sessionCookie(t, login)

	logout := a.do(http.MethodPost, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusNoContent, logout.Code)

	// The token is dead server-side, not just cleared client-side.
	me := a.do(http.MethodGet, "/auth/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestMe_Anonymous(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_authenticated")
}

func TestMe_NeverExposesInternalID(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	login := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"hunter2222"}`)
	cookie := sessionCookie(t, login)

	me := a.do(http.MethodGet, "/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, me.Code)
	assert.NotContains(t, me.Body.String(), `"UserID"`)
	assert.Contains(t, me.Body.String(), `"id"`)
}

func TestChangePassword(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "alice@example.com")

	login := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"hunter2222"}`)
	cookie := sessionCookie(t, login)

	rec := a.do(http.MethodPost, "/auth/change-password",
		`{"current_password":"hunter2222","new_password":"new password 2"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	relogin := a.do(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"new password 2"}`)
	assert.Equal(t, http.StatusOK, relogin.Code)
}

func TestChangePassword_Anonymous(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/auth/change-password",
		`{"current_password":"x","new_password":"new password 2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
