package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpDown_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "migrate.db")

	require.NoError(t, Up(ctx, "sqlite", dsn))
	v, err := Version(ctx, "sqlite", dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	// idempotent
	require.NoError(t, Up(ctx, "sqlite", dsn))

	require.NoError(t, Down(ctx, "sqlite", dsn))
	v, err = Version(ctx, "sqlite", dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMigrationDirs(t *testing.T) {
	assert.Equal(t, "migrations/postgres", migrationDir("postgrespool"))
	assert.Equal(t, "migrations/sqlite", migrationDir("sqlite"))
	assert.Error(t, configureGoose("mysql"))
}
