// Command effectif-init recreates the SQLite database and loads the
// initial portfolio fixture. Intended for local development and demos.
package main

import (
	"context"
	"flag"
	"os"

	"effectif/internal/cli"
	"effectif/internal/log"
	"effectif/internal/seed"
	"effectif/internal/storage"
)

func main() {
	reset := flag.Bool("reset", false, "drop the existing database file before seeding")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentSeed)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.DataBackend != "sqlite" {
		logger.Error("Seeding requires the sqlite backend", log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	if *reset {
		if err := os.Remove(cfg.SQLiteDBPath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to remove database file",
				log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Existing database removed", log.FieldPath, cfg.SQLiteDBPath)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if err := seed.Apply(context.Background(), repo); err != nil {
		logger.Error("Seeding failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Database ready", log.FieldPath, cfg.SQLiteDBPath)
}
