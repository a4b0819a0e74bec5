// Package analyze provides the `mxcore analyze` diagnostic: probe every
// media file under a directory and print a tabular codec/bitrate report
// with statistical outlier highlighting. It is read-only triage before a
// batch conversion; it never touches the job lifecycle.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/mxcore/internal/display"
	"github.com/backmassage/mxcore/internal/logging"
	"github.com/backmassage/mxcore/internal/probe"
)

// ProbeFunc matches probe.Probe. Tests substitute a stub.
type ProbeFunc func(ctx context.Context, path string) (probe.ProbeSummary, error)

// fileRow holds the probed per-file data for the analysis table.
type fileRow struct {
	Name       string
	Resolution string
	VideoCodec string
	AudioDesc  string // e.g. "aac 2ch"
	Kbps       int64  // overall container bitrate
	SizeBytes  int64
	DurationS  float64
}

// Run discovers media files under inputDir, probes each one, and prints a
// codec/bitrate report. probeFn may be nil to use the real probe.Probe.
func Run(ctx context.Context, inputDir string, probeFn ProbeFunc, log *logging.Logger) error {
	if probeFn == nil {
		probeFn = probe.Probe
	}

	files, err := Discover(inputDir)
	if err != nil {
		return fmt.Errorf("analyze: discover %s: %w", inputDir, err)
	}
	if len(files) == 0 {
		log.Warn("No media files found in %s", inputDir)
		return nil
	}

	log.Info("Analyzing %d files in %s ...", len(files), inputDir)

	var rows []fileRow
	var skipped int
	var totalBytes int64
	var kbpsVals []float64

	for _, path := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			return ctx.Err()
		}

		summary, err := probeFn(ctx, path)
		if err != nil {
			skipped++
			log.Warn("Skip (probe failed): %s", filepath.Base(path))
			continue
		}

		row := buildRow(filepath.Base(path), summary)
		if info, err := os.Stat(path); err == nil {
			row.SizeBytes = info.Size()
			totalBytes += row.SizeBytes
		}
		rows = append(rows, row)
		if row.Kbps > 0 {
			kbpsVals = append(kbpsVals, float64(row.Kbps))
		}
	}

	if len(rows) == 0 {
		log.Warn("No files could be probed")
		return nil
	}

	stats := computeStats(kbpsVals)
	outliers, extremes := printTable(rows, stats)

	log.Info("Analyzed %d files (%d skipped), %s on disk", len(rows), skipped, display.FormatBytes(totalBytes))
	if stats.valid {
		log.Info("Bitrate IQR: %s - %s",
			display.FormatBitrateLabel(int64(stats.q1)),
			display.FormatBitrateLabel(int64(stats.q3)))
	}
	if outliers+extremes > 0 {
		log.Outlier("%d bitrate outliers (%d extreme); these may deserve a different tier or preset", outliers+extremes, extremes)
	}
	return nil
}

func buildRow(name string, s probe.ProbeSummary) fileRow {
	row := fileRow{
		Name:      name,
		Kbps:      s.BitrateBps / 1000,
		DurationS: s.DurationSec,
	}
	if s.HasVideo {
		row.VideoCodec = s.VCodec
		if s.Width > 0 && s.Height > 0 {
			row.Resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
	}
	if s.HasAudio {
		row.AudioDesc = s.ACodec
		if s.Channels > 0 {
			row.AudioDesc = fmt.Sprintf("%s %dch", s.ACodec, s.Channels)
		}
	}
	return row
}

func printTable(rows []fileRow, stats iqrBounds) (outliers, extremes int) {
	const (
		hFile  = "File"
		hRes   = "Resolution"
		hVideo = "Video"
		hAudio = "Audio"
		hRate  = "Bitrate"
		hSize  = "Size"
	)

	nameW, resW, vW, aW, rW, szW := len(hFile), len(hRes), len(hVideo), len(hAudio), len(hRate), len(hSize)
	for _, r := range rows {
		nameW = max(nameW, len(r.Name))
		resW = max(resW, len(r.Resolution))
		vW = max(vW, len(r.VideoCodec))
		aW = max(aW, len(r.AudioDesc))
		rW = max(rW, len(display.FormatBitrateLabel(r.Kbps)))
		szW = max(szW, len(display.FormatBytes(r.SizeBytes)))
	}
	if nameW > 45 {
		nameW = 45
	}

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %-*s  %*s  %*s",
		nameW, hFile, resW, hRes, vW, hVideo, aW, hAudio, rW, hRate, szW, hSize)
	fmt.Println(header)
	fmt.Println("  " + strings.Repeat("-", len(header)-2))

	for _, r := range rows {
		name := r.Name
		if len(name) > nameW {
			name = name[:nameW-1] + "~"
		}
		mark := " "
		switch stats.classify(float64(r.Kbps)) {
		case "outlier":
			mark = "*"
			outliers++
		case "extreme":
			mark = "!"
			extremes++
		}
		fmt.Printf("%s %-*s  %-*s  %-*s  %-*s  %*s  %*s\n",
			mark, nameW, name, resW, r.Resolution, vW, r.VideoCodec,
			aW, r.AudioDesc, rW, display.FormatBitrateLabel(r.Kbps),
			szW, display.FormatBytes(r.SizeBytes))
	}
	fmt.Println()
	return outliers, extremes
}
