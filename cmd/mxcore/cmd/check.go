package cmd

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/check"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Diagnose the toolchain against the preset catalog",
	Long: `Check verifies ffmpeg and ffprobe are present, loads the capability
snapshot, and reports per preset whether the encoder it would select is
actually available in the installed build. Informational only; a missing
encoder produces runtime warnings, not a refusal to run.`,
	RunE: func(cc *cobra.Command, _ []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		registry := capability.NewRegistry(cfg.FfmpegBin)
		check.RunCheck(cc.Context(), cfg.FfmpegBin, cfg.FfprobeBin, registry, cat, logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
