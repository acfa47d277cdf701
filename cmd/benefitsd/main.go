package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/internal/app"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("BENEFITS_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := common.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benefitsd: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{Queue: true})
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if err := a.Service.Health(ctx); err != nil {
		logger.Error("record store health failed", "error", err)
		_ = a.Close(context.Background())
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.New(a.Service, logger, a.Metrics, cfg.Server.MaxUploadBytes).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exit := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	case err := <-errCh:
		if err != nil {
			logger.Error("http serve failed", "error", err)
			exit = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		exit = 1
	}
	logger.Info("stopped")
	os.Exit(exit)
}
