package migrations_test

import (
	"context"
	"io"
	"testing"

	"ms-lounge/internal/database"
	"ms-lounge/internal/database/migrations"
	"ms-lounge/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func openDB(t *testing.T) *bun.DB {
	bunDB, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func countMenu(t *testing.T, bunDB *bun.DB) int {
	n, err := bunDB.NewSelect().Table("menu_items").Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSchemaOnlyMigration(t *testing.T) {
	bunDB := openDB(t)
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{SeedData: false}, logger.NewLoggerWithWriter(io.Discard))
	defer runner.Close()

	require.NoError(t, runner.RunMigrations())

	version, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, migrations.SchemaVersion, version)
	assert.Zero(t, countMenu(t, bunDB))
}

func TestSeedMigrationAndRerun(t *testing.T) {
	bunDB := openDB(t)
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), logger.NewLoggerWithWriter(io.Discard))
	defer runner.Close()

	require.NoError(t, runner.RunMigrations())
	seeded := countMenu(t, bunDB)
	assert.Equal(t, 31, seeded)

	// Running again is a no-op.
	require.NoError(t, runner.RunMigrations())
	assert.Equal(t, seeded, countMenu(t, bunDB))

	// The handle stays usable after the runner is closed.
	require.NoError(t, runner.Close())
	require.NoError(t, bunDB.PingContext(context.Background()))
}

func TestMigrateDownAndUp(t *testing.T) {
	bunDB := openDB(t)
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), logger.NewLoggerWithWriter(io.Discard))
	defer runner.Close()

	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.MigrateTo(3))

	var tables []string
	err := bunDB.NewRaw("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'shifts'").Scan(context.Background(), &tables)
	require.NoError(t, err)
	assert.Empty(t, tables)

	require.NoError(t, runner.MigrateUp())
	version, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(5), version)
}

func TestPartialIndexesRejectSecondOpenShift(t *testing.T) {
	bunDB := openDB(t)
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{}, logger.NewLoggerWithWriter(io.Discard))
	defer runner.Close()
	require.NoError(t, runner.RunMigrations())

	ctx := context.Background()
	_, err := bunDB.ExecContext(ctx, "INSERT INTO shifts (shift_number, month_year, staff_id, opened_at, status) VALUES (1, '2024-01', 1, '2024-01-01 10:00:00', 'open')")
	require.NoError(t, err)
	_, err = bunDB.ExecContext(ctx, "INSERT INTO shifts (shift_number, month_year, staff_id, opened_at, status) VALUES (2, '2024-01', 1, '2024-01-01 11:00:00', 'open')")
	assert.True(t, database.IsUniqueViolation(err))

	_, err = bunDB.ExecContext(ctx, "INSERT INTO shifts (shift_number, month_year, staff_id, opened_at, status) VALUES (1, '2024-01', 1, '2024-01-02 10:00:00', 'closed')")
	assert.True(t, database.IsUniqueViolation(err))
}
