package cmd

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/analyze"
	"github.com/backmassage/mxcore/internal/check"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <directory>",
	Short: "Probe a directory and report codecs and bitrate outliers",
	Long: `Analyze probes every media file under a directory and prints a
codec/bitrate table with IQR-based outlier highlighting, useful triage
before picking a preset and tier for a batch conversion. Read-only: no
jobs are created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cc *cobra.Command, args []string) error {
		if err := check.CheckDeps(cfg.FfmpegBin, cfg.FfprobeBin); err != nil {
			return err
		}
		return analyze.Run(cc.Context(), args[0], nil, logger)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
