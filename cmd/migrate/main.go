// Package main is the schema migration CLI for the convention service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/convention-service/internal/config"
	"github.com/helixir/convention-service/internal/database"
	"github.com/helixir/convention-service/internal/observability"
)

type action struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
}

func (a action) count() int {
	n := 0
	if a.up {
		n++
	}
	if a.down {
		n++
	}
	if a.steps != 0 {
		n++
	}
	if a.version {
		n++
	}
	if a.force >= 0 {
		n++
	}
	return n
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var a action
	flag.BoolVar(&a.up, "up", false, "Apply all pending migrations")
	flag.BoolVar(&a.down, "down", false, "Roll back all migrations")
	flag.IntVar(&a.steps, "steps", 0, "Apply N migration steps (negative rolls back)")
	flag.BoolVar(&a.version, "version", false, "Print the current schema version")
	flag.IntVar(&a.force, "force", -1, "Force the schema version without migrating (dirty state recovery)")
	pathFlag := flag.String("path", "", "Override the migrations directory")
	flag.Parse()

	switch a.count() {
	case 0:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nSpecify one of: -up, -down, -steps N, -version, -force V")
		return fmt.Errorf("no action specified")
	case 1:
	default:
		return fmt.Errorf("specify only one action at a time")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if *pathFlag != "" {
		migrationDir = *pathFlag
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch {
	case a.up:
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case a.down:
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case a.steps != 0:
		if err := migrator.Steps(a.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case a.force >= 0:
		if err := migrator.Force(a.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	reportVersion(migrator, logger)
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine schema version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current schema version")
}
