package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/newswire/internal/config"
	"github.com/pressly/goose/v3"
)

// runMigrations executes the given goose command against the configured
// migrations directory and exits. Supported commands: up, down, status.
func runMigrations(cfg *config.Config, command string) error {
	db, err := openDatabase(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	dir := cfg.Database.MigrationsDir
	switch command {
	case "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q (want up, down or status)", command)
	}
}
