// Package check provides the `mxcore check` diagnostic flow: PATH/binary
// checks for ffmpeg and ffprobe, plus a capability-vs-catalog report that
// lists, for every loaded preset, whether the encoder it would select is
// actually present in the installed FFmpeg build.
package check

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/planner"
)

// Sentinel errors returned by CheckDeps when a required binary is missing.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound = errors.New("ffprobe not found on PATH")
)

// Logger is the minimal logging interface RunCheck needs, kept narrow so
// check stays testable with a trivial stub rather than importing the full
// logging package.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// CheckDeps verifies ffmpeg and ffprobe are on PATH. It is the fail-fast
// pre-flight gate a CLI command runs before admitting any job, independent
// of the richer informational report RunCheck prints.
func CheckDeps(ffmpegBin, ffprobeBin string) error {
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath(ffprobeBin); err != nil {
		return ErrFfprobeNotFound
	}
	return nil
}

// RunCheck runs the `mxcore check` flow: binary presence/version, then a
// per-preset encoder availability report against the capability snapshot.
// Informational only; it does not stop on failure.
func RunCheck(ctx context.Context, ffmpegBin, ffprobeBin string, registry *capability.Registry, cat *catalog.Catalog, log Logger) {
	log.Info("=== mxcore dependency check ===")

	checkBinary(log, ffmpegBin, "ffmpeg")
	checkBinary(log, ffprobeBin, "ffprobe")

	snap := registry.Load(ctx)
	log.Info("Capability snapshot: %d video encoders, %d audio encoders, %d muxers",
		len(snap.VideoEncoders), len(snap.AudioEncoders), len(snap.Muxers))

	for _, preset := range cat.ListPresets() {
		reportPreset(log, preset, snap)
	}
}

func checkBinary(log Logger, bin, label string) {
	path, err := exec.LookPath(bin)
	if err != nil {
		log.Error("%s not found on PATH (looked for %q)", label, bin)
		return
	}
	out, err := exec.Command(bin, "-version").Output()
	if err != nil {
		log.Warn("%s found at %s but -version failed: %v", label, path, err)
		return
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("%s: %s", label, firstLine)
}

// reportPreset warns when the preset's video or audio codec would select
// an encoder the capability snapshot never reported, mirroring the
// planner's own advisory-only treatment of missing encoders (a warning,
// never a hard error: custom toolchain builds often under-report).
func reportPreset(log Logger, preset catalog.Preset, snap capability.Snapshot) {
	var missing []string

	if needsVideoEncoder(preset.Video.Codec) {
		if name, ok := planner.SelectVideoEncoder(string(preset.Video.Codec), snap); !ok {
			missing = append(missing, "video encoder "+name)
		}
	}
	if needsAudioEncoder(preset.Audio.Codec) {
		if name, ok := planner.SelectAudioEncoder(string(preset.Audio.Codec), snap); !ok {
			missing = append(missing, "audio encoder "+name)
		}
	}

	if len(missing) == 0 {
		log.Success("preset %-20s OK", preset.ID)
		return
	}
	log.Warn("preset %-20s missing: %s", preset.ID, strings.Join(missing, ", "))
}

func needsVideoEncoder(codec catalog.VCodec) bool {
	return codec != catalog.VCodecCopy && codec != catalog.VCodecNone
}

func needsAudioEncoder(codec catalog.ACodec) bool {
	return codec != catalog.ACodecCopy && codec != catalog.ACodecNone
}
