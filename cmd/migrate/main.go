package main

import (
	"context"
	"flag"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/infra/sqlite"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)

	var (
		dbPath    = flag.String("db", cfg.DatabasePath, "SQLite database file (or set DATABASE_PATH env)")
		appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	)
	flag.Parse()

	ctx := logger.WithContext(context.Background(), log)

	db, err := sqlite.Client(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer sqlite.CloseAll()

	log.Info().Str("path", *dbPath).Msg("Connected to SQLite database")

	count, err := sqlite.Migrate(ctx, db, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply")
		return
	}
	log.Info().Int("count", count).Msg("Migrations applied successfully")
}
