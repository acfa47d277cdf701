package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default <file>-benefits.xlsx)")
}

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Write the stored result of a document as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		b, rec, err := a.Service.Export(ctx, args[0])
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = workbookName(rec)
		}
		if err := os.WriteFile(out, b, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}
