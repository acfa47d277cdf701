package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/benefits-extractor/internal/app"
	"github.com/joseph-ayodele/benefits-extractor/internal/benefits"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/ingest"
)

var (
	runProfile    string
	runDocumentID string
	runRefill     bool
	runXLSXDir    string
	runExtensions []string
	runSkipHidden bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runProfile, "profile", "", "company profile ID (required)")
	runCmd.Flags().StringVar(&runDocumentID, "document-id", "", "document ID override (single file only)")
	runCmd.Flags().BoolVar(&runRefill, "refill", false, "re-extract absent fields against the whole region (default from extraction.refill)")
	runCmd.Flags().StringVar(&runXLSXDir, "xlsx", "", "write a workbook per completed document into this directory")
	runCmd.Flags().StringSliceVar(&runExtensions, "ext", nil, "file extensions to pick up in directories (default: all supported)")
	runCmd.Flags().BoolVar(&runSkipHidden, "skip-hidden", true, "skip dot files and directories")
	_ = runCmd.MarkFlagRequired("profile")
}

var runCmd = &cobra.Command{
	Use:   "run <file|dir>",
	Short: "Extract one document or every supported document under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	opts := benefits.RunOptions{Refill: a.Config.Extraction.Refill}
	if cmd.Flags().Changed("refill") {
		opts.Refill = runRefill
	}

	target := args[0]
	info, err := os.Stat(target)
	if err != nil {
		return common.NotFoundError(fmt.Sprintf("%s: %v", target, err))
	}

	if !info.IsDir() {
		rec, err := a.Service.Extract(ctx, benefits.ExtractRequest{
			ProfileID:  runProfile,
			DocumentID: runDocumentID,
			Path:       target,
			Refill:     &opts.Refill,
		})
		if err != nil {
			return err
		}
		if err := writeWorkbook(ctx, a, rec); err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	}

	if runDocumentID != "" {
		return common.InvalidArgumentError("--document-id applies to a single file")
	}
	var (
		records []*entity.ExtractionRecord
		failed  int
	)
	stats, err := a.Loader.LoadDirectory(ctx, target, ingest.DirOptions{
		Extensions: runExtensions,
		SkipHidden: runSkipHidden,
	}, func(fr ingest.FileResult) error {
		if fr.Err != nil {
			failed++
			return nil
		}
		rec, err := a.Service.ExtractDocument(ctx, fr.Document, runProfile, opts)
		if err != nil {
			failed++
			a.Logger.Error("extract failed", "path", fr.Path, "error", err)
			// every later document would fail the same way
			if errors.Is(err, common.ErrUnavailable) || errors.Is(err, common.ErrNotFound) {
				return err
			}
			return nil
		}
		records = append(records, rec)
		return writeWorkbook(ctx, a, rec)
	})
	a.Logger.Info("directory done",
		"root", target,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"extracted", len(records),
		"failed", failed,
	)
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), records); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, stats.Matched)
	}
	return nil
}

func writeWorkbook(ctx context.Context, a *app.App, rec *entity.ExtractionRecord) error {
	if runXLSXDir == "" {
		return nil
	}
	b, _, err := a.Service.Export(ctx, rec.DocumentID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runXLSXDir, 0o755); err != nil {
		return fmt.Errorf("create xlsx dir: %w", err)
	}
	path := filepath.Join(runXLSXDir, workbookName(rec))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	a.Logger.Info("workbook written", "document_id", rec.DocumentID, "path", path)
	return nil
}

func workbookName(rec *entity.ExtractionRecord) string {
	base := rec.DocumentID
	if rec.FileName != "" {
		base = strings.TrimSuffix(rec.FileName, filepath.Ext(rec.FileName))
	}
	return base + "-benefits.xlsx"
}
