// Package config holds runtime configuration: defaults, the Preferences
// contract consumed by the orchestration core, and the viper-backed loader
// that merges flags, environment variables, and an optional config file.
package config

import (
	"errors"
	"strings"
)

// ColorMode controls ANSI color output in the logger.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Preferences is the read-only contract the orchestration core consumes
// from the host application. Nothing in internal/facade or below ever
// mutates it; a new Config/Preferences pair is loaded per process.
type Preferences struct {
	MaxConcurrency       int    `mapstructure:"max_concurrency"`
	OutputDirectory      string `mapstructure:"output_directory"`
	IncludePresetInName  bool   `mapstructure:"include_preset_in_name"`
	IncludeTierInName    bool   `mapstructure:"include_tier_in_name"`
	FilenameSeparator    string `mapstructure:"filename_separator"`
}

// Config holds process-wide settings: the consumed Preferences plus the
// ambient logging/toolchain settings every command needs.
type Config struct {
	Preferences Preferences `mapstructure:",squash"`

	FfmpegBin  string `mapstructure:"ffmpeg_bin"`
	FfprobeBin string `mapstructure:"ffprobe_bin"`

	Verbose   bool      `mapstructure:"verbose"`
	ColorMode ColorMode `mapstructure:"color"`
	LogFile   string    `mapstructure:"log_file"`
	DevMode   bool      `mapstructure:"dev_mode"`

	WatchDir string `mapstructure:"watch_dir"`
	PresetID string `mapstructure:"preset"`
}

// Default returns a Config with every field at its documented default,
// before flags/env/config-file overrides are merged in by Load.
func Default() Config {
	return Config{
		Preferences: Preferences{
			MaxConcurrency:      2,
			IncludePresetInName: false,
			IncludeTierInName:   false,
			FilenameSeparator:   "_",
		},
		FfmpegBin:  "ffmpeg",
		FfprobeBin: "ffprobe",
		ColorMode:  ColorAuto,
	}
}

// Validate checks enum fields and clamps MaxConcurrency to its floor of 1,
// mirroring the scheduler's own set_concurrency clamp so a bad config value
// never reaches the scheduler in the first place.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.New("invalid color mode (use 'auto', 'always', or 'never')")
	}
	if c.Preferences.MaxConcurrency < 1 {
		c.Preferences.MaxConcurrency = 1
	}
	if c.Preferences.FilenameSeparator == "" {
		c.Preferences.FilenameSeparator = "_"
	}
	c.FfmpegBin = strings.TrimSpace(c.FfmpegBin)
	c.FfprobeBin = strings.TrimSpace(c.FfprobeBin)
	if c.FfmpegBin == "" {
		c.FfmpegBin = "ffmpeg"
	}
	if c.FfprobeBin == "" {
		c.FfprobeBin = "ffprobe"
	}
	return nil
}
