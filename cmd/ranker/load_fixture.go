package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/config"
	"github.com/jonathan/candidate-ranker/internal/db"
	"github.com/jonathan/candidate-ranker/internal/schemas"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/store/sqlite"
)

var loadFixtureCmd = &cobra.Command{
	Use:   "load-fixture",
	Short: "Import jobs, candidates and embeddings into the configured store",
	Long:  "Validates a fixture JSON file and upserts its jobs, candidates and embeddings into the sqlite or postgres store.",
	RunE:  runLoadFixture,
}

var loadFixtureInput string

func init() {
	loadFixtureCmd.Flags().StringVarP(&loadFixtureInput, "in", "i", "", "Path to fixture JSON file (required)")

	if err := loadFixtureCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(loadFixtureCmd)
}

// fixtureImporter is implemented by the persistent stores.
type fixtureImporter interface {
	ImportFixture(ctx context.Context, f *store.Fixture) error
	Close() error
}

func runLoadFixture(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	return loadFixture(cmd.Context(), cfg, loadFixtureInput, logger)
}

func loadFixture(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) error {
	// Schema check first for readable field paths; ParseFixture still
	// enforces referential integrity.
	if schemaPath := schemas.ResolveSchemaPath("schemas/fixture.schema.json"); schemaPath != "" {
		if err := schemas.ValidateJSON(schemaPath, path); err != nil {
			return fmt.Errorf("fixture %s does not match schema: %w", path, err)
		}
	}

	f, err := store.LoadFixture(path)
	if err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	var target fixtureImporter
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		s, err := sqlite.NewStore(cfg.Store.SQLitePath, catalog)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		target = s
	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, catalog)
		if err != nil {
			return err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close() //nolint:errcheck
			return err
		}
		target = database
	default:
		return fmt.Errorf("store driver %q does not support imports; use sqlite or postgres", cfg.Store.Driver)
	}
	defer target.Close() //nolint:errcheck

	if err := target.ImportFixture(ctx, f); err != nil {
		return fmt.Errorf("failed to import fixture %s: %w", path, err)
	}

	logger.Info("fixture imported",
		zap.String("path", path),
		zap.String("driver", cfg.Store.Driver),
		zap.Int("jobs", len(f.Jobs)),
		zap.Int("candidates", len(f.Candidates)))
	return nil
}
