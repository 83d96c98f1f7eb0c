// Package config loads runtime settings for the sumsync CLI and the
// pipelines behind it.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SUMSYNC_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all configurable aspects of the client.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Sums configures the SumsDB session and pipelines.
	Sums SumsConfig `mapstructure:"sums"`

	// Files configures the file framework.
	Files FilesConfig `mapstructure:"files"`

	// Prefs configures the local preferences store.
	Prefs PrefsConfig `mapstructure:"prefs"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// SumsConfig holds the SumsDB server endpoint and pipeline tuning.
type SumsConfig struct {
	// BaseURL is the scheme://host[:port] of the SumsDB server.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`

	// DownloadRetries is the number of attempts per file in the download
	// pipeline (covers both failed transfers and truncated gzip payloads).
	DownloadRetries int `mapstructure:"download_retries" validate:"required,gte=1,lte=10"`

	// LoginBeforeOperation re-runs the full login before every search,
	// download, or upload.
	LoginBeforeOperation bool `mapstructure:"login_before_operation"`
}

// FilesConfig controls the file framework.
type FilesConfig struct {
	// OverwriteAllowed permits Write to replace an existing file.
	OverwriteAllowed bool `mapstructure:"overwrite_allowed"`

	// PreferredWriteEncodings is walked in order; the first encoding the
	// current file type can write is used instead of the type's default.
	// Valid values: ascii, binary, xml, xml_base64, xml_gzip_base64, csv.
	PreferredWriteEncodings []string `mapstructure:"preferred_write_encodings" validate:"dive,oneof=ascii binary xml xml_base64 xml_gzip_base64 csv"`

	// PermissionsMask, when nonzero, is applied to every file written by
	// the framework (e.g. 0644). Stored in decimal by viper; octal in YAML.
	PermissionsMask uint32 `mapstructure:"permissions_mask" validate:"lte=511"`
}

// PrefsConfig configures the local sqlite preferences store.
type PrefsConfig struct {
	// Path is the sqlite database file. Empty means
	// <config dir>/prefs.db.
	Path string `mapstructure:"path"`

	// RecentLimit caps the recent spec files / directories lists.
	RecentLimit int `mapstructure:"recent_limit" validate:"gte=1,lte=100"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/sumsync or ~/.config/sumsync) is searched.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: SUMSYNC_SUMS_BASE_URL=https://sumsdb.example.edu
	v.SetEnvPrefix("SUMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is acceptable; defaults apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sumsync")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "sumsync")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
