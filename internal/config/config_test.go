package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.Preferences.MaxConcurrency)
	assert.Equal(t, "_", cfg.Preferences.FilenameSeparator)
	assert.Equal(t, "ffmpeg", cfg.FfmpegBin)
	assert.Equal(t, "ffprobe", cfg.FfprobeBin)
	assert.Equal(t, ColorAuto, cfg.ColorMode)
}

func TestValidateClamps(t *testing.T) {
	cfg := Default()
	cfg.Preferences.MaxConcurrency = 0
	cfg.Preferences.FilenameSeparator = ""
	cfg.FfmpegBin = "  "
	cfg.FfprobeBin = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Preferences.MaxConcurrency)
	assert.Equal(t, "_", cfg.Preferences.FilenameSeparator)
	assert.Equal(t, "ffmpeg", cfg.FfmpegBin)
	assert.Equal(t, "ffprobe", cfg.FfprobeBin)
}

func TestValidateRejectsBadColorMode(t *testing.T) {
	cfg := Default()
	cfg.ColorMode = "rainbow"
	assert.Error(t, cfg.Validate())
}

func TestLoadDefaultsWithoutFileOrFlags(t *testing.T) {
	// Run from an empty directory so no stray mxcore.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Preferences.MaxConcurrency)
	assert.Equal(t, "ffmpeg", cfg.FfmpegBin)
}

func TestLoadFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mxcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_concurrency: 4
output_directory: /converted
include_tier_in_name: true
ffmpeg_bin: /opt/ffmpeg/bin/ffmpeg
`), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Preferences.MaxConcurrency)
	assert.Equal(t, "/converted", cfg.Preferences.OutputDirectory)
	assert.True(t, cfg.Preferences.IncludeTierInName)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FfmpegBin)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
