// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gatekit/gatekit/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, table := range []string{"users", "sessions", "one_time_codes"} {
		var count int64
		err := db.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "missing table %s", table)
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := database.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A second Open against the same file must not fail.
	db, err = database.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestMigrateDown(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.MigrateDown(db.DB))

	var count int64
	err = db.GetContext(context.Background(), &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
