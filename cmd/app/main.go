// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/oliverandrich/courses/internal/config"
	"codeberg.org/oliverandrich/courses/internal/database"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"codeberg.org/oliverandrich/courses/internal/seed"
	"codeberg.org/oliverandrich/courses/internal/server"
	"codeberg.org/oliverandrich/courses/internal/services/courses"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Video courses with email verification",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web application",
				Action: server.Run,
			},
			migrateCommand(),
			seedCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: withDB(func(_ context.Context, db *sqlx.DB) error {
					return database.RunMigrations(db.DB)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: withDB(func(_ context.Context, db *sqlx.DB) error {
					return database.MigrateDown(db.DB)
				}),
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: withDB(func(_ context.Context, db *sqlx.DB) error {
					return database.MigrateReset(db.DB)
				}),
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: withDB(func(_ context.Context, db *sqlx.DB) error {
					version, err := database.MigrationVersion(db.DB)
					if err != nil {
						return err
					}
					fmt.Printf("schema version %d\n", version)
					return nil
				}),
			},
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load a course catalogue (the built-in demo courses by default)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "TOML catalogue to load instead of the demo courses",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.NewFromCLI(cmd)
			server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

			cat, err := loadCatalogue(cmd.String("file"))
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			repo := repository.New(db)
			created, err := seed.Apply(ctx, courses.NewService(repo), repo, cat)
			if err != nil {
				return err
			}
			slog.Info("seeding finished", "created", created, "total", len(cat.Courses))
			return nil
		},
	}
}

func loadCatalogue(path string) (*seed.Catalogue, error) {
	if path == "" {
		return seed.Demo()
	}
	return seed.ParseFile(path)
}

// withDB opens the database without migrating it and hands it to fn.
func withDB(fn func(context.Context, *sqlx.DB) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		server.SetupLogger(cfg.Log.Level, cfg.Log.Format)

		db, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()

		if err := fn(ctx, db); err != nil {
			return err
		}
		slog.Info("migration command finished", "command", cmd.Name)
		return nil
	}
}
