package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/config"
	"github.com/jonathan/candidate-ranker/internal/db"
	"github.com/jonathan/candidate-ranker/internal/embedding"
	"github.com/jonathan/candidate-ranker/internal/llm"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/oracle"
	"github.com/jonathan/candidate-ranker/internal/pipeline"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/store/sqlite"
)

// app is a configured engine and the resources it owns.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *aspects.Catalog
	engine  *pipeline.Engine
	closers []func() error
}

// newLogger builds the CLI logger. Console output goes to stderr so command
// results on stdout stay machine readable.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	opts := cfg.LogOptions()
	opts.Stderr = true
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newApp opens the configured backend and wires the oracle and embedder
// when an API key is configured. Without one, requests run on uniform
// weights and the jobs' stored vectors, and skip explanations.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logging.OrNop(logger), catalog: catalog}

	backend, err := openBackend(ctx, cfg, catalog)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, backend.Close)

	deps := pipeline.Deps{
		Directory:  backend,
		Embeddings: backend,
		Catalog:    catalog,
		Logger:     a.logger,
	}

	if cfg.LLM.APIKey != "" {
		if err := a.wireOracle(ctx, &deps); err != nil {
			a.Close() //nolint:errcheck
			return nil, err
		}
	} else {
		a.logger.Warn("no LLM API key configured: weights fall back to uniform and explanations are skipped")
	}

	engine, err := pipeline.NewEngine(deps, cfg.EngineOptions())
	if err != nil {
		a.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	a.engine = engine
	return a, nil
}

// wireOracle connects the weighting and explanation oracle and the target
// embedder.
func (a *app) wireOracle(ctx context.Context, deps *pipeline.Deps) error {
	cfg := a.cfg

	client, err := llm.NewClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	o := newOracle(client, cfg, a.logger)
	deps.Weigher = oracle.NewWeightAdapter(o, a.catalog, a.logger)
	deps.Explainer = oracle.NewExplainer(o, a.catalog, cfg.Engine.TopN, a.logger)

	gemini, err := embedding.NewGenAIEmbedder(ctx, cfg.LLM.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	var embedder embedding.Embedder = gemini
	if cfg.Embedding.CacheTTL > 0 {
		embedder = embedding.NewCachedEmbedder(gemini, fmt.Sprintf("%s/%d", gemini.Model(), cfg.Embedding.Dimensions), cfg.Embedding.CacheTTL)
	}
	deps.Targets = embedding.NewTargetBuilder(embedder, a.catalog, a.logger)
	return nil
}

// newOracle builds the LLM oracle with the configured model tier per kind.
func newOracle(client llm.Client, cfg *config.Config, logger *zap.Logger) *oracle.LLMOracle {
	o := oracle.NewLLMOracle(client, logger)
	for kind, tier := range cfg.OracleTiers() {
		o.WithTier(kind, tier)
	}
	return o
}

// Close releases the backend and clients in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// openBackend opens the store selected by cfg.Store.Driver.
func openBackend(ctx context.Context, cfg *config.Config, catalog *aspects.Catalog) (store.Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, catalog)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close() //nolint:errcheck
			return nil, err
		}
		return database, nil
	case config.DriverSQLite:
		s, err := sqlite.NewStore(cfg.Store.SQLitePath, catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	case config.DriverFixture:
		f, err := store.LoadFixture(cfg.Store.FixturePath)
		if err != nil {
			return nil, err
		}
		return store.NewMemory(f, catalog), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
