package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/check"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/facade"
	"github.com/backmassage/mxcore/internal/job"
	"github.com/backmassage/mxcore/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a hot folder and convert files as they appear",
	Long: `Watch ingests every recognized media file dropped under a directory
tree, enqueues it under one preset and tier, and keeps converting until
interrupted. Files already present at startup are converted first.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.String("preset", "", "preset id (see 'mxcore presets')")
	f.String("tier", "balanced", "quality tier: fast, balanced, high")
	f.Int("max_concurrency", 2, "maximum parallel conversions")
	f.String("output_directory", "", "output directory (default: next to each source)")
	f.Bool("include_preset_in_name", false, "append the preset id to output filenames")
	f.Bool("include_tier_in_name", false, "append the tier to output filenames")
	f.String("filename_separator", "_", "separator before appended name segments")
	_ = watchCmd.MarkFlagRequired("preset")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cc *cobra.Command, args []string) error {
	if err := check.CheckDeps(cfg.FfmpegBin, cfg.FfprobeBin); err != nil {
		return err
	}

	cat, err := catalog.Load()
	if err != nil {
		return err
	}
	if _, ok := cat.ResolvePreset(cfg.PresetID); !ok {
		return fmt.Errorf("unknown preset %q (see 'mxcore presets')", cfg.PresetID)
	}
	tier, err := parseTier(cc)
	if err != nil {
		return err
	}

	root := args[0]
	if info, err := os.Stat(root); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	f := facade.New(cat, cfg.FfmpegBin, cfg.Preferences, nil)
	defer f.Close()

	// Every completion triggers another StartNext so the queue drains
	// continuously as new files arrive.
	unsub := f.Subscribe(eventbus.TopicCompletion, func(ev eventbus.Event) {
		if rec, ok := findJob(f, ev.JobID); ok {
			logOutcome(rec)
		}
		f.StartNext()
	})
	defer unsub()

	w, err := watch.New(&startingEnqueuer{f: f}, cfg.PresetID, tier)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx, root); err != nil {
		return err
	}
	logger.Info("Watching %s (preset %s, tier %s); Ctrl-C to stop", root, cfg.PresetID, tier)

	<-ctx.Done()
	logger.Warn("Stopping; cancelling running jobs")
	for _, rec := range f.JobsSnapshot() {
		if !rec.Phase().Terminal() {
			f.Cancel(rec.ID)
		}
	}
	return nil
}

// startingEnqueuer couples each successful admission with a StartNext, so
// the watcher never has to know about the scheduler.
type startingEnqueuer struct {
	f *facade.Facade
}

func (e *startingEnqueuer) Enqueue(path, presetID string, tier catalog.Tier) (job.ID, error) {
	id, err := e.f.Enqueue(path, presetID, tier)
	if err != nil {
		return "", err
	}
	e.f.StartNext()
	return id, nil
}

func findJob(f *facade.Facade, id job.ID) (job.Record, bool) {
	for _, rec := range f.JobsSnapshot() {
		if rec.ID == id {
			return rec, true
		}
	}
	return job.Record{}, false
}
