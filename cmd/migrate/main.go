package main

// Run database migrations:
//   go run ./cmd/migrate            # up
//   go run ./cmd/migrate down       # roll back one version
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medreport-backend/internal/shared/config"
	"medreport-backend/internal/shared/storage/db"
	"medreport-backend/internal/shared/telemetry"
)

type migrateFunc func(ctx context.Context, database *sql.DB) error

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply session store migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), db.RunMigrations)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), db.RunMigrations)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), db.RollbackMigration)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), db.MigrationStatus)
			},
		},
	)
	return root
}

func run(ctx context.Context, fn migrateFunc) error {
	cfg := config.Load()
	telemetry.Configure(cfg.LogFormat, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	return fn(ctx, sqlDB)
}
