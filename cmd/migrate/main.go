package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"evrental-backend/internal/config"
	"evrental-backend/internal/logger"
	"evrental-backend/migrations"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect the database schema",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	rootCmd.AddCommand(upCmd(), downCmd(), statusCmd(), resetCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withProvider opens the database and hands a goose provider to fn.
func withProvider(ctx context.Context, fn func(*goose.Provider) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	return fn(provider)
}

func logResults(results []*goose.MigrationResult) {
	for _, r := range results {
		logger.Info("Migration applied", "version", r.Source.Version, "direction", r.Direction, "duration", r.Duration)
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), func(p *goose.Provider) error {
				results, err := p.Up(cmd.Context())
				logResults(results)
				return err
			})
		},
	}
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), func(p *goose.Provider) error {
				result, err := p.Down(cmd.Context())
				if result != nil {
					logResults([]*goose.MigrationResult{result})
				}
				return err
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), func(p *goose.Provider) error {
				results, err := p.DownTo(cmd.Context(), 0)
				logResults(results)
				return err
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvider(cmd.Context(), func(p *goose.Provider) error {
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					applied := "pending"
					if s.State == goose.StateApplied {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-30s %s\n", s.Source.Version, s.Source.Path, applied)
				}
				return nil
			})
		},
	}
}
