package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [profiles-dir]",
	Short: "Load every company profile in a directory and report problems",
	Long: `Load every .yaml, .yml and .json profile in the directory. Without an
argument the directory comes from profiles.dir in the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	var dir string
	level := logLevel
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		dir = cfg.Profiles.Dir
		level = cfg.Log.Level
	}
	logger := common.NewLoggerTo(os.Stderr, level, "text")

	reg, err := profiles.LoadDir(dir, logger)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tCATEGORIES\tFIELDS\tSTART MARKERS")
	for _, p := range reg.List() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", p.ID, len(p.Categories), p.FieldCount(), len(p.Structure.StartMarkers))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d profile(s) OK\n", reg.Len())
	return nil
}
