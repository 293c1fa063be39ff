// Package app wires the engine together: knowledge store, retrieval,
// sessions, feedback, composition, and the optional archive and tracing
// infrastructure. Construction order follows the dependency graph; nothing
// here holds global state.
package app

import (
	"context"
	"fmt"

	"github.com/mirutec/sage/db"
	"github.com/mirutec/sage/internal/archive"
	"github.com/mirutec/sage/internal/assistant"
	"github.com/mirutec/sage/internal/compose"
	"github.com/mirutec/sage/internal/config"
	"github.com/mirutec/sage/internal/dataset"
	"github.com/mirutec/sage/internal/feedback"
	"github.com/mirutec/sage/internal/knowledge"
	"github.com/mirutec/sage/internal/log"
	"github.com/mirutec/sage/internal/observability"
	"github.com/mirutec/sage/internal/retrieval"
	"github.com/mirutec/sage/internal/session"
)

// App holds the wired engine components.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Knowledge *knowledge.Store
	Retriever *retrieval.Retriever
	Sessions  *session.Manager
	Feedback  *feedback.Store
	Ingestor  *dataset.Ingestor
	Assistant *assistant.Assistant
	Archive   *archive.Archive // nil when no database is configured

	stopTracing func(context.Context) error
}

// Setup constructs the full engine from configuration.
//
// The archive is optional: with no database URL the engine runs purely in
// memory, matching the original deployment mode. A configured but
// unreachable database fails startup so misconfiguration surfaces early.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	stopTracing, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	var arch *archive.Archive
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrating archive schema: %w", err)
		}
		arch, err = archive.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting archive: %w", err)
		}
	}

	store := knowledge.NewStore(knowledge.Weights{
		Min:     cfg.WeightMin,
		Max:     cfg.WeightMax,
		Neutral: cfg.WeightNeutral,
	}, logger)
	seeded := knowledge.Seed(store)
	logger.Info("knowledge store seeded", "entries", seeded)

	retriever := retrieval.New(store, retrieval.Lexical{}, retrieval.Config{
		TopK:     cfg.TopK,
		MinScore: cfg.MinScore,
	}, logger)

	sessions := session.NewManager(logger)

	var refiner compose.Refiner
	if cfg.RefinerEnabled {
		r, err := compose.NewGenaiRefiner(ctx, cfg.RefinerAPIKey, cfg.RefinerModel)
		if err != nil {
			return nil, fmt.Errorf("creating refiner: %w", err)
		}
		refiner = r
		logger.Info("reply refinement enabled", "model", cfg.RefinerModel)
	}
	composer := compose.New(refiner, logger)

	var fbArchiver feedback.Archiver
	var dsRegistrar dataset.Registrar
	if arch != nil {
		fbArchiver = arch
		dsRegistrar = arch
	}

	fb := feedback.NewStore(store, fbArchiver, cfg.LearningRate, logger)
	ingestor := dataset.New(store, dsRegistrar, cfg.MaxUploadBytes, logger)
	asst := assistant.New(sessions, retriever, composer, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Knowledge:   store,
		Retriever:   retriever,
		Sessions:    sessions,
		Feedback:    fb,
		Ingestor:    ingestor,
		Assistant:   asst,
		Archive:     arch,
		stopTracing: stopTracing,
	}, nil
}

// Close releases external resources: the archive pool and the trace
// exporter. Safe to call once after Setup succeeds.
func (a *App) Close(ctx context.Context) error {
	if a.Archive != nil {
		a.Archive.Close()
	}
	if a.stopTracing != nil {
		if err := a.stopTracing(ctx); err != nil {
			return fmt.Errorf("flushing traces: %w", err)
		}
	}
	return nil
}
