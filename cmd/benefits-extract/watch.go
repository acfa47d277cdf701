package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/benefits-extractor/internal/benefits"
	"github.com/joseph-ayodele/benefits-extractor/internal/ingest"
)

var (
	watchProfile     string
	watchInitialScan bool
	watchExtensions  []string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchProfile, "profile", "", "company profile ID (required)")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "also extract files already present")
	watchCmd.Flags().StringSliceVar(&watchExtensions, "ext", nil, "file extensions to pick up (default: all supported)")
	_ = watchCmd.MarkFlagRequired("profile")
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Extract documents as they land in the watched directories",
	Long: `Watch the directories recursively and extract every supported file that is
created or rewritten. One JSON record per line is written to stdout. Stops on
interrupt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	// validate the profile up front rather than on the first file
	if _, err := a.Service.Profile(watchProfile); err != nil {
		return err
	}

	paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       args,
		Extensions:  watchExtensions,
		InitialScan: watchInitialScan,
		SkipHidden:  true,
		Debounce:    a.Config.Ingest.WatchDebounce,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Logger.Info("watching", "roots", args, "profile", watchProfile)

	enc := json.NewEncoder(cmd.OutOrStdout())
	opts := benefits.RunOptions{Refill: a.Config.Extraction.Refill}
	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			doc, err := a.Loader.LoadFile(ctx, p)
			if err != nil {
				a.Logger.Warn("watch load failed", "path", p, "error", err)
				continue
			}
			rec, err := a.Service.ExtractDocument(ctx, doc, watchProfile, opts)
			if err != nil {
				a.Logger.Error("watch extract failed", "path", p, "error", err)
				continue
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.Logger.Warn("watcher error", "error", err)
		}
	}
	return nil
}
