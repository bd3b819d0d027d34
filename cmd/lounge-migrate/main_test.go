package main

import (
	"context"
	"io"
	"testing"

	"ms-lounge/internal/catalog"
	catalogdb "ms-lounge/internal/catalog/db"
	"ms-lounge/internal/database"
	"ms-lounge/internal/database/migrations"
	"ms-lounge/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedMenuOnEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	bunDB, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer bunDB.Close()

	log := logger.NewLoggerWithWriter(io.Discard)
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{}, log)
	defer runner.Close()
	menu := catalog.NewMenuService(&catalogdb.DB{Bun: bunDB}, log)

	require.NoError(t, seedMenu(ctx, runner, menu, log))

	version, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, migrations.SchemaVersion, version)

	items, err := menu.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(catalog.DefaultMenu()))

	// a second run leaves the menu alone
	require.NoError(t, seedMenu(ctx, runner, menu, log))
	items, err = menu.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(catalog.DefaultMenu()))
}
