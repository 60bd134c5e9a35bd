package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigratorValidation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("nil database", func(t *testing.T) {
		m, err := NewMigrator(nil, "migrations", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("database without pool", func(t *testing.T) {
		m, err := NewMigrator(&DB{}, "migrations", logger)
		require.Error(t, err)
		assert.Nil(t, m)
	})

	t.Run("empty migrations path", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		m, err := NewMigrator(db, "", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "migrations path is required")
	})

	t.Run("nonexistent migrations path", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		m, err := NewMigrator(db, "/does/not/exist", logger)
		require.Error(t, err)
		assert.Nil(t, m)
	})
}

func TestMigratorLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	dir := migrationsDir(t)
	logger := zerolog.Nop()

	t.Run("up down and version", func(t *testing.T) {
		m, err := NewMigrator(db, dir, logger)
		require.NoError(t, err)
		defer func() { _ = m.Close() }()

		require.NoError(t, m.Up())

		v, dirty, err := m.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Greater(t, v, uint(0))

		// A second Up is a no-op, not an error.
		require.NoError(t, m.Up())

		require.NoError(t, m.Down())

		_, _, err = m.Version()
		assert.ErrorIs(t, err, migrate.ErrNilVersion)
	})

	t.Run("steps forward and back", func(t *testing.T) {
		m, err := NewMigrator(db, dir, logger)
		require.NoError(t, err)
		defer func() { _ = m.Close() }()

		require.NoError(t, m.Steps(1))

		v, dirty, err := m.Version()
		require.NoError(t, err)
		assert.False(t, dirty)
		assert.Equal(t, uint(1), v)

		require.NoError(t, m.Steps(-1))

		// Stepping past the last migration is tolerated.
		require.NoError(t, m.Up())
		require.NoError(t, m.Steps(100))
		require.NoError(t, m.Down())
	})

	t.Run("close is idempotent enough for the CLI", func(t *testing.T) {
		m, err := NewMigrator(db, dir, logger)
		require.NoError(t, err)
		assert.NoError(t, m.Close())
	})
}

// migrationsDir resolves the repository's migrations directory relative to
// this package.
func migrationsDir(t *testing.T) string {
	t.Helper()

	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)

	if _, err := os.Stat(dir); err != nil {
		t.Skipf("skipping: migrations directory not found: %v", err)
	}
	return dir
}
