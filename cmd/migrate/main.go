// Package main runs schema migrations for the assessment core.
//
// Usage:
//
//	migrate up       apply all pending migrations
//	migrate down     roll back the most recent migration
//	migrate status   show applied state of every migration
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/skills-hub/assessment-core/config"
	"github.com/skills-hub/assessment-core/internal/infrastructure/persistence/postgres"
	"github.com/skills-hub/assessment-core/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	log := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	}).With(logger.Component("migrate"))

	ctx := context.Background()
	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.DefaultConfig())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn, postgres.GetMigrations())

	switch command {
	case "up":
		if err := migrator.Migrate(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
	case "down":
		if err := migrator.Rollback(ctx); err != nil {
			return err
		}
		log.Info("last migration rolled back")
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%3d  %-35s %s\n", s.Version, s.Name, state)
		}
	default:
		return fmt.Errorf("unknown command %q (want up, down, or status)", command)
	}
	return nil
}
