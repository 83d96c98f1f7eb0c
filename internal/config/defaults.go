package config

import (
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the public SumsDB endpoint.
const DefaultBaseURL = "https://sumsdb.wustl.edu"

// ApplyDefaults fills in any unset configuration values.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Sums.BaseURL == "" {
		cfg.Sums.BaseURL = DefaultBaseURL
	}
	cfg.Sums.BaseURL = strings.TrimRight(cfg.Sums.BaseURL, "/")
	if cfg.Sums.TimeoutSeconds == 0 {
		cfg.Sums.TimeoutSeconds = 120
	}
	if cfg.Sums.DownloadRetries == 0 {
		cfg.Sums.DownloadRetries = 5
	}

	if cfg.Files.PreferredWriteEncodings == nil {
		// Preserve whatever encoding the type would write by default.
		cfg.Files.PreferredWriteEncodings = []string{}
	}

	if cfg.Prefs.Path == "" {
		cfg.Prefs.Path = filepath.Join(getConfigDir(), "prefs.db")
	}
	if cfg.Prefs.RecentLimit == 0 {
		cfg.Prefs.RecentLimit = 20
	}
}
