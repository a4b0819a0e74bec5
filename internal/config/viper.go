package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix namespaces every environment variable this program reads, e.g.
// MXCORE_MAX_CONCURRENCY, MXCORE_OUTPUT_DIRECTORY.
const envPrefix = "MXCORE"

// Load builds a viper instance seeded with defaults, binds flags (normally
// the root command's persistent flag set), merges an optional config file,
// and unmarshals the result into a validated Config. Precedence (highest
// first): explicit flags, environment variables, config file, defaults.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("max_concurrency", def.Preferences.MaxConcurrency)
	v.SetDefault("output_directory", def.Preferences.OutputDirectory)
	v.SetDefault("include_preset_in_name", def.Preferences.IncludePresetInName)
	v.SetDefault("include_tier_in_name", def.Preferences.IncludeTierInName)
	v.SetDefault("filename_separator", def.Preferences.FilenameSeparator)
	v.SetDefault("ffmpeg_bin", def.FfmpegBin)
	v.SetDefault("ffprobe_bin", def.FfprobeBin)
	v.SetDefault("color", string(def.ColorMode))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("mxcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mxcore")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
