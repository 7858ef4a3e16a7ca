package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkordes/modelio/internal/catalog"
	"github.com/pkordes/modelio/internal/config"
	"github.com/pkordes/modelio/internal/logging"
	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/service"
)

// app carries state shared by every subcommand.
type app struct {
	out         io.Writer
	catalogPath string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "modelio",
		Short: "Exchange database records as CSV and XLSX files",
		Long: `modelio exports the records of a configured resource to CSV or XLSX and
imports edited files back. Resources and the models behind them are declared
in a YAML catalog (CATALOG_PATH, default catalog.yaml).

Examples:
  modelio resources
  modelio export stops -o stops.xlsx
  modelio export stops -o - --id 1 --id 2
  modelio import stops -i stops.xlsx
  modelio migrate up`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.catalogPath, "catalog", "", "catalog file (overrides CATALOG_PATH)")

	root.AddCommand(
		newResourcesCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// config loads the environment configuration and installs the logger.
// Logs go to stderr so stdout stays usable for exported data.
func (a *app) config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if a.catalogPath != "" {
		cfg.CatalogPath = a.catalogPath
	}
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// catalog loads the catalog without requiring database settings.
func (a *app) catalog() (*catalog.Catalog, error) {
	path := a.catalogPath
	if path == "" {
		path = os.Getenv("CATALOG_PATH")
	}
	if path == "" {
		path = "catalog.yaml"
	}
	return catalog.Load(path)
}

// transfer connects to the database and returns a ready service together
// with the function that closes the connection.
func (a *app) transfer(ctx context.Context) (*service.Transfer, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	records, closeDB, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cat.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.DBDriver, err)
	}
	return service.NewTransfer(records, cat, cfg.TransferOptions()), closeDB, nil
}
