// Command benefits-extract runs extractions from the command line against the
// same profiles and record store as benefitsd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/benefits-extractor/internal/app"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

var (
	configPath string
	logLevel   string
	version    = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "benefits-extract",
	Short: "Extract benefit fields from plan documents",
	Long: `benefits-extract locates the benefits region of a plan document, finds
each category header of a company profile and extracts the configured fields.

Examples:
  # Extract one file and print the record
  benefits-extract run --profile acme plan.pdf

  # Extract a directory and write one workbook per document
  benefits-extract run --profile acme --xlsx out/ ./plans

  # Check every profile in a directory
  benefits-extract validate ./configs/profiles`,
	Version:       version,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BENEFITS_CONFIG"), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// loadConfig reads the config file and environment. Logs go to stderr so
// stdout carries only command output.
func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, common.NewLoggerTo(os.Stderr, cfg.Log.Level, cfg.Log.Format), nil
}

// openApp builds the service for commands that touch the record store.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger, app.Options{})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
