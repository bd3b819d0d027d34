// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"context"
	"io"
	"testing"

	"ms-lounge/internal/database"
	"ms-lounge/internal/database/migrations"
	"ms-lounge/internal/logger"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// New returns a fresh in-memory database with the full schema applied.
// The seed menu is skipped unless seed is true.
func New(t *testing.T, seed bool) *bun.DB {
	t.Helper()

	bunDB, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{AutoMigrate: true, SeedData: seed}, logger.NewLoggerWithWriter(io.Discard))
	require.NoError(t, runner.RunMigrations())
	require.NoError(t, runner.Close())

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}
