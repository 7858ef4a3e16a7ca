package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status]",
		Short:     "Apply the bundled migrations of the sample schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "reset", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, err := a.config()
			if err != nil {
				return err
			}
			db, d, err := repo.OpenSQL(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			provider, err := migrations.NewProvider(db, d.Name())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch action {
			case "status":
				statuses, err := provider.Status(ctx)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				for _, s := range statuses {
					fmt.Fprintf(a.out, "%-8s %s\n", s.State, filepath.Base(s.Source.Path))
				}
				return nil
			case "down":
				res, err := provider.Down(ctx)
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				printResults(a, []*goose.MigrationResult{res})
				return nil
			case "reset":
				results, err := provider.DownTo(ctx, 0)
				if err != nil {
					return fmt.Errorf("migrate reset: %w", err)
				}
				printResults(a, results)
				return nil
			default:
				results, err := provider.Up(ctx)
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				if len(results) == 0 {
					fmt.Fprintln(a.out, "no migrations to apply")
				}
				printResults(a, results)
				return nil
			}
		},
	}
}

func printResults(a *app, results []*goose.MigrationResult) {
	for _, r := range results {
		fmt.Fprintf(a.out, "%-4s %s (%s)\n", r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
}
