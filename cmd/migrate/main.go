// Database migration tool for the wallet finder backend.
package main

import (
	"flag"
	"fmt"

	"github.com/wallet-finder/internal/config"
	"github.com/wallet-finder/internal/logging"
	"github.com/wallet-finder/internal/storage"
)

func main() {
	var (
		direction      = flag.String("direction", "up", "Migration direction: up or down")
		pgPath         = flag.String("postgres-path", "migrations/postgres", "Path to Postgres migration files")
		chPath         = flag.String("clickhouse-path", "migrations/clickhouse", "Path to ClickHouse migration files")
		skipClickHouse = flag.Bool("skip-clickhouse", false, "Skip ClickHouse migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.Database,
	)

	switch *direction {
	case "up":
		if err := storage.RunMigrations(databaseURL, *pgPath); err != nil {
			logger.WithError(err).Fatal("Postgres migration failed")
		}
		logger.Info("Postgres migrations applied")

		if !*skipClickHouse {
			ch, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
			if err != nil {
				logger.WithError(err).Fatal("Failed to connect to ClickHouse")
			}
			defer ch.Close() // nolint:errcheck // shutdown path

			if err := storage.RunClickHouseMigrations(ch, *chPath); err != nil {
				logger.WithError(err).Fatal("ClickHouse migration failed")
			}
			logger.Info("ClickHouse migrations applied")
		}
	case "down":
		if err := storage.RollbackMigrations(databaseURL, *pgPath); err != nil {
			logger.WithError(err).Fatal("Rollback failed")
		}
		logger.Info("Rolled back last Postgres migration")
	default:
		logger.Fatalf("Unknown direction %q, expected up or down", *direction)
	}
}
