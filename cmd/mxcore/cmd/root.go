// Package cmd implements the CLI commands for mxcore.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/job"
	"github.com/backmassage/mxcore/internal/logging"
	"github.com/backmassage/mxcore/internal/probe"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

var (
	cfgFile string

	// cfg and logger are populated by the root command's
	// PersistentPreRunE and consumed by every subcommand.
	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mxcore",
	Short: "Preset-driven media conversion orchestrator",
	Long: `mxcore transcodes or remuxes media files through an external FFmpeg
toolchain, driven by a declarative preset catalog. Given a source file and
a preset, it probes the source, decides per stream whether to copy or
transcode, builds a deterministic ffmpeg command, and supervises the run.`,
	Version:       version + " (" + commit + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cc *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cc.Flags(), cfgFile)
		if err != nil {
			return err
		}

		logger, err = logging.NewLogger(cfg)
		if err != nil {
			return err
		}

		// Route the package-level zerolog the internal packages use
		// through the same console/file writer.
		zlog.Logger = *logger.Zerolog()
		if !cfg.Verbose {
			zlog.Logger = zlog.Logger.Level(zerolog.InfoLevel)
		}

		job.DevMode = cfg.DevMode
		probe.SetToolName(cfg.FfprobeBin)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

// Execute runs the root command, printing the failure to stderr so main
// only needs the exit code.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mxcore: %v\n", err)
		return err
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./mxcore.yaml or $HOME/.config/mxcore/mxcore.yaml)")
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("color", "auto", "color output: auto, always, never")
	pf.String("log_file", "", "also append JSON logs to this file")
	pf.Bool("dev_mode", false, "panic on illegal job state transitions instead of logging")
	pf.String("ffmpeg_bin", "ffmpeg", "ffmpeg binary to invoke")
	pf.String("ffprobe_bin", "ffprobe", "ffprobe binary to invoke")
}
