package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/mxcore/internal/analyze"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/check"
	"github.com/backmassage/mxcore/internal/display"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/facade"
	"github.com/backmassage/mxcore/internal/job"
)

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert files or directories with a preset",
	Long: `Convert enqueues every given file (directories are walked for media
files) under one preset and tier, runs the jobs subject to the concurrency
and exclusive-codec constraints, and reports each outcome.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.String("preset", "", "preset id (see 'mxcore presets')")
	f.String("tier", "balanced", "quality tier: fast, balanced, high")
	f.Int("max_concurrency", 2, "maximum parallel conversions")
	f.String("output_directory", "", "output directory (default: next to each source)")
	f.Bool("include_preset_in_name", false, "append the preset id to output filenames")
	f.Bool("include_tier_in_name", false, "append the tier to output filenames")
	f.String("filename_separator", "_", "separator before appended name segments")
	_ = convertCmd.MarkFlagRequired("preset")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cc *cobra.Command, args []string) error {
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

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("No media files found in the given paths")
		return nil
	}

	display.PrintBanner(cfg.ColorMode)

	f := facade.New(cat, cfg.FfmpegBin, cfg.Preferences, nil)
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := f.EnqueueMany(paths, cfg.PresetID, tier)
	for _, dup := range result.Duplicates {
		logger.Warn("Duplicate, skipped: %s", dup)
	}
	if len(result.Accepted) == 0 {
		logger.Warn("Nothing to do")
		return nil
	}
	logger.Info("Enqueued %d jobs (preset %s, tier %s, %d parallel)",
		len(result.Accepted), cfg.PresetID, tier, cfg.Preferences.MaxConcurrency)

	tracker := newOutcomeTracker(f, result.Accepted)
	unsub := f.Subscribe(eventbus.TopicCompletion, tracker.onCompletion)
	defer unsub()

	f.StartNext()

	// Completion events only cover jobs that actually spawned a process;
	// a probe failure or queued-cancel is terminal without one, so sweep
	// on a timer as well.
	go func() {
		tick := time.NewTicker(500 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-tracker.done:
				return
			case <-tick.C:
				tracker.sweep()
			}
		}
	}()

	select {
	case <-tracker.done:
	case <-ctx.Done():
		logger.Warn("Interrupted; cancelling running jobs")
		for _, rec := range f.JobsSnapshot() {
			if !rec.Phase().Terminal() {
				f.Cancel(rec.ID)
			}
		}
		<-tracker.done
	}

	return tracker.report(logger)
}

// outcomeTracker watches completion events and repository snapshots until
// every admitted job has reached a terminal phase.
type outcomeTracker struct {
	f       *facade.Facade
	pending map[job.ID]bool
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func newOutcomeTracker(f *facade.Facade, ids []job.ID) *outcomeTracker {
	pending := make(map[job.ID]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	return &outcomeTracker{f: f, pending: pending, done: make(chan struct{})}
}

// onCompletion fires on every runner completion event; jobs can also reach
// a terminal state without one (probe failure, queued-cancel), so the
// snapshot is the authority on what is still pending.
func (t *outcomeTracker) onCompletion(eventbus.Event) {
	t.sweep()
}

func (t *outcomeTracker) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.f.JobsSnapshot() {
		if t.pending[rec.ID] && rec.Phase().Terminal() {
			delete(t.pending, rec.ID)
			logOutcome(rec)
		}
	}
	if len(t.pending) == 0 {
		t.once.Do(func() { close(t.done) })
	}
}

func logOutcome(rec job.Record) {
	switch st := rec.State.(type) {
	case job.CompletedState:
		if delta, ok := sizeDelta(rec.Path, st.OutputPath); ok {
			logger.Success("%s -> %s (%s)", filepath.Base(rec.Path), st.OutputPath, display.FormatBytesWithSign(delta))
			return
		}
		logger.Success("%s -> %s", filepath.Base(rec.Path), st.OutputPath)
	case job.FailedState:
		logger.Error("%s failed (%s): %s", filepath.Base(rec.Path), st.Code, st.Error)
	case job.CancelledState:
		logger.Warn("%s cancelled", filepath.Base(rec.Path))
	}
}

// sizeDelta returns output minus source size in bytes; negative means the
// conversion shrank the file.
func sizeDelta(sourcePath, outputPath string) (int64, bool) {
	src, err := os.Stat(sourcePath)
	if err != nil {
		return 0, false
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		return 0, false
	}
	return out.Size() - src.Size(), true
}

func (t *outcomeTracker) report(log interface{ Info(string, ...interface{}) }) error {
	var completed, failed, cancelled int
	for _, rec := range t.f.JobsSnapshot() {
		switch rec.Phase() {
		case job.PhaseCompleted:
			completed++
		case job.PhaseFailed:
			failed++
		case job.PhaseCancelled:
			cancelled++
		}
	}
	log.Info("Done: %d completed, %d failed, %d cancelled", completed, failed, cancelled)
	if failed > 0 {
		return fmt.Errorf("%d jobs failed", failed)
	}
	return nil
}

// expandPaths turns the positional arguments into a flat file list,
// walking directories for recognized media files.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		files, err := analyze.Discover(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func parseTier(cc *cobra.Command) (catalog.Tier, error) {
	raw, _ := cc.Flags().GetString("tier")
	switch t := catalog.Tier(strings.ToLower(raw)); t {
	case catalog.TierFast, catalog.TierBalanced, catalog.TierHigh:
		return t, nil
	default:
		return "", fmt.Errorf("invalid tier %q (use fast, balanced, or high)", raw)
	}
}
