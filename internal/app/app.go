// Package app wires configuration into a running extraction service. Both
// binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/benefits-extractor/internal/async"
	"github.com/joseph-ayodele/benefits-extractor/internal/benefits"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/ingest"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm/provider"
	"github.com/joseph-ayodele/benefits-extractor/internal/metrics"
	"github.com/joseph-ayodele/benefits-extractor/internal/pipeline"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
	"github.com/joseph-ayodele/benefits-extractor/internal/repository"
)

// App holds the long-lived components of one process.
type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Registry *profiles.Registry
	Repo     repository.ExtractionRepository
	Loader   *ingest.Loader
	Service  *benefits.Service
	Queue    *async.WorkerQueue
}

// Options adjusts how New builds the App.
type Options struct {
	// Capability replaces the configured provider.
	Capability llm.Capability
	// Queue starts the background worker queue.
	Queue bool
}

// New loads profiles, opens the record store and builds the service.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	reg, err := profiles.LoadDir(cfg.Profiles.Dir, logger)
	if err != nil {
		return nil, common.NewAppError("PROFILES_ERROR", "load company profiles", errors.Join(common.ErrConfig, err))
	}
	if reg.Len() == 0 {
		logger.Warn("profiles.empty", "dir", cfg.Profiles.Dir)
	}

	capability := opts.Capability
	if capability == nil {
		capability, err = provider.New(cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
	}

	repo, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	m := metrics.New()
	engine := pipeline.NewEngine(logger, pipeline.Config{
		Concurrency:     cfg.Extraction.Concurrency,
		MaxRetries:      cfg.Extraction.MaxRetries,
		RetryBackoff:    cfg.Extraction.RetryBackoff,
		TOCLookahead:    cfg.Extraction.TOCLookahead,
		RefillBatchSize: cfg.Extraction.RefillBatchSize,
	}, capability, m)
	loader := ingest.NewLoader(ingest.Config{
		Pdftotext:    cfg.Ingest.Pdftotext,
		MaxFileBytes: cfg.Ingest.MaxFileBytes,
	}, logger)
	svc := benefits.NewService(reg, engine, repo, loader, logger, benefits.WithRefill(cfg.Extraction.Refill))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Registry: reg,
		Repo:     repo,
		Loader:   loader,
		Service:  svc,
	}
	if opts.Queue {
		a.Queue = async.NewWorkerQueue(svc, logger,
			async.WithWorkers(cfg.Queue.Workers),
			async.WithQueueSize(cfg.Queue.Size),
			async.WithProcessTimeout(cfg.Queue.Timeout),
			async.WithMetrics(m),
		)
		svc.UseQueue(a.Queue)
	}
	logger.Info("app.ready",
		"profiles", reg.Len(),
		"postgres", cfg.Database.IsPostgres(),
		"queue", opts.Queue,
		"refill", cfg.Extraction.Refill,
	)
	return a, nil
}

// Close drains the queue within ctx and closes the record store.
func (a *App) Close(ctx context.Context) error {
	if a.Queue != nil {
		a.Queue.Shutdown(ctx)
	}
	if err := a.Repo.Close(); err != nil {
		a.Logger.Error("app.close.failed", "error", err)
		return err
	}
	return nil
}
