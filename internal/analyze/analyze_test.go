package analyze

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/logging"
	"github.com/backmassage/mxcore/internal/probe"
)

func TestComputeStats(t *testing.T) {
	// Too few samples: invalid bounds, nothing classified.
	b := computeStats([]float64{1, 2, 3})
	assert.False(t, b.valid)
	assert.Empty(t, b.classify(1000))

	vals := []float64{100, 110, 120, 130, 140, 150, 160, 170}
	b = computeStats(vals)
	require.True(t, b.valid)
	assert.Empty(t, b.classify(135), "median value is normal")
	assert.Equal(t, "extreme", b.classify(10000))
	assert.Empty(t, b.classify(0), "zero/unknown is never an outlier")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.InDelta(t, 17.5, percentile(sorted, 25), 0.001)
	assert.InDelta(t, 32.5, percentile(sorted, 75), 0.001)
	assert.InDelta(t, 10, percentile([]float64{10}, 25), 0.001)
	assert.Zero(t, percentile(nil, 50))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	mk := func(parts ...string) string {
		p := filepath.Join(append([]string{dir}, parts...)...)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}

	a := mk("b.mkv")
	b := mk("a.mp4")
	mk("notes.txt")
	mk("extras", "bonus.mkv")
	c := mk("season1", "ep1.webm")

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{b, a, c}, files, "sorted, media-only, extras pruned")
}

func TestBuildRow(t *testing.T) {
	row := buildRow("clip.mkv", probe.ProbeSummary{
		DurationSec: 61.5, BitrateBps: 5_500_000,
		HasVideo: true, VCodec: "hevc", Width: 1920, Height: 1080,
		HasAudio: true, ACodec: "ac3", Channels: 6,
	})
	assert.Equal(t, "clip.mkv", row.Name)
	assert.Equal(t, "1920x1080", row.Resolution)
	assert.Equal(t, "hevc", row.VideoCodec)
	assert.Equal(t, "ac3 6ch", row.AudioDesc)
	assert.Equal(t, int64(5500), row.Kbps)
}

func TestRunWithStubProbe(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv", "d.mkv", "e.mkv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	cfg := config.Default()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	calls := 0
	stub := func(_ context.Context, path string) (probe.ProbeSummary, error) {
		calls++
		if filepath.Base(path) == "c.mkv" {
			return probe.ProbeSummary{}, errors.New("unreadable")
		}
		return probe.ProbeSummary{
			BitrateBps: int64(1_000_000 * calls),
			HasVideo:   true, VCodec: "h264", Width: 1280, Height: 720,
			HasAudio: true, ACodec: "aac", Channels: 2,
		}, nil
	}

	require.NoError(t, Run(context.Background(), dir, stub, log))
	assert.Equal(t, 5, calls, "every discovered file probed")
}

func TestRunEmptyDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	assert.NoError(t, Run(context.Background(), t.TempDir(), nil, log))
}
