// Package config loads chunkzip settings from defaults, an optional config
// file and CHUNKZIP_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name
	AppName = "chunkzip"
	// ConfigFileName is the config file name without extension
	ConfigFileName = ".chunkzip"
	// EnvPrefix prefixes environment overrides, e.g. CHUNKZIP_CHUNK_SIZE
	EnvPrefix = "CHUNKZIP"
)

// Config holds the settings that are not given on the command line
type Config struct {
	// Excludes are used when neither --exclude nor an excludes file is present
	Excludes   []string `mapstructure:"excludes"`
	OutputName string   `mapstructure:"output_name"`
	OutputDir  string   `mapstructure:"output_dir"`
	ChunkSize  string   `mapstructure:"chunk_size"`
	Format     string   `mapstructure:"format"`
	MatchMode  string   `mapstructure:"match_mode"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Excludes: []string{
			"node_modules",
			".git",
			".github",
			".idea",
			"database/database.sqlite",
		},
		OutputDir: ".",
		ChunkSize: "0",
		Format:    "zip",
		MatchMode: "segment",
	}
}

// Dir returns $XDG_CONFIG_HOME/chunkzip, falling back to ~/.config/chunkzip
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get home directory")
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Load reads the configuration. When path is set only that file is read and
// it must exist; otherwise .chunkzip.{yaml,toml,json} is looked up in the
// working directory and then in Dir, and a missing file is not an error.
// It returns the config and the file it was read from, if any.
func Load(path string) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("excludes", defaults.Excludes)
	v.SetDefault("output_name", defaults.OutputName)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("chunk_size", defaults.ChunkSize)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("match_mode", defaults.MatchMode)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errors.Wrap(err, "parse config")
	}
	return &cfg, v.ConfigFileUsed(), nil
}
