// Package main implements the entry point for the newswire server, which
// scrapes news articles, summarizes them with an LLM and publishes them to a
// WordPress site, all through an asynchronous task engine.
package main

import (
	"flag"
	"log"
	"log/slog"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/phrazzld/newswire/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, appLogger, err := initialize()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(cfg, *migrateCmd); err != nil {
			appLogger.Error("migration failed", "command", *migrateCmd, "error", err)
			log.Fatalf("Migration failed: %v", err)
		}
		appLogger.Info("migration completed", "command", *migrateCmd)
		return
	}

	app, err := buildApplication(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

// initialize loads configuration and sets up structured logging.
func initialize() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"schema_dir", cfg.Scraper.SchemaDir,
		"worker_count", cfg.Task.WorkerCount)

	if cfg.Server.APIKey == "" {
		appLogger.Warn("no API key configured, enqueue endpoints are unauthenticated")
	}

	return cfg, appLogger, nil
}
