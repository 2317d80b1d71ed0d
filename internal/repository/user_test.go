// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/gatekit/gatekit/internal/models"
	"github.com/gatekit/gatekit/internal/repository"
	"github.com/gatekit/gatekit/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_AssignsID(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	user := testutil.NewTestUser(t, repo, "a@example.com")

	assert.NotZero(t, user.ID)
	assert.NotEmpty(t, user.PublicID)
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestUser(t, repo, "Mixed.Case@Example.COM")

	user, err := repo.GetUserByEmail(ctx, "mixed.case@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	user, err = repo.GetUserByEmail(ctx, "MIXED.CASE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateUser_DuplicateEmailDiffersOnlyByCase(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestUser(t, repo, "dup@example.com")

	err := repo.CreateUser(ctx, &models.User{
		PublicID:     uuid.NewString(),
		Email:        "DUP@example.com",
		PasswordHash: "x",
	})

	assert.Error(t, err)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "a@example.com")
	oldHash := user.PasswordHash

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	updated, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.NotEqual(t, oldHash, updated.PasswordHash)
}

func TestUpdateUserPassword_UnknownUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateUserPassword(context.Background(), 999, "new-hash")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetEmailVerified(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "a@example.com")
	require.False(t, user.EmailVerified)

	require.NoError(t, repo.SetEmailVerified(ctx, user.ID))

	updated, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)
}
