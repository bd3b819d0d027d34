// Command lounge-migrate applies or rolls back the ledger schema.
//
//	lounge-migrate up | down | to <version> | version | seed
//
// seed refills an empty menu, for databases migrated without seed data.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ms-lounge/internal/catalog"
	catalogdb "ms-lounge/internal/catalog/db"
	"ms-lounge/internal/config"
	"ms-lounge/internal/database"
	"ms-lounge/internal/database/migrations"
	"ms-lounge/internal/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lounge-migrate up | down | to <version> | version | seed")
	os.Exit(2)
}

// seedMenu brings the schema up to the last schema version if needed and
// fills the menu when it is empty.
func seedMenu(ctx context.Context, runner *migrations.Runner, menu *catalog.MenuService, log *logger.Logger) error {
	version, err := runner.Version()
	if err != nil {
		return err
	}
	if version < migrations.SchemaVersion {
		if err := runner.MigrateTo(migrations.SchemaVersion); err != nil {
			return err
		}
	}
	added, err := menu.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	log.Info("MIGRATION", fmt.Sprintf("Seeded %d menu items", added))
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	log := logger.NewLogger()
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{SeedData: cfg.Database.SeedData}, log)
	defer runner.Close()

	switch os.Args[1] {
	case "up":
		err = runner.MigrateUp()
	case "down":
		err = runner.MigrateDown()
	case "to":
		if len(os.Args) < 3 {
			usage()
		}
		version, perr := strconv.ParseUint(os.Args[2], 10, 32)
		if perr != nil {
			log.Fatal("MIGRATION", fmt.Sprintf("Invalid version %q: %v", os.Args[2], perr))
		}
		err = runner.MigrateTo(uint(version))
	case "version":
	case "seed":
		err = seedMenu(ctx, runner, catalog.NewMenuService(&catalogdb.DB{Bun: bunDB}, log), log)
	default:
		usage()
	}
	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}

	version, err := runner.Version()
	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	log.Info("MIGRATION", fmt.Sprintf("✅ %s at schema version %d", cfg.Database.Path, version))
}
