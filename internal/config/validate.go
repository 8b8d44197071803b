package config

import (
	"fmt"
	"time"
)

var allowedLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var allowedLogFormats = map[string]struct{}{
	"text": {}, "json": {},
}

// Validate rejects a config document that Normalize could not have
// produced from valid input: unknown schema version, unrecognized
// enum values, malformed durations, or duplicate/incomplete repo
// entries.
func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CONFIG_VERSION: unsupported version %d", cfg.Version)
	}
	if _, ok := allowedLogLevels[cfg.Logging.Level]; !ok {
		return fmt.Errorf("CONFIG_LOG_LEVEL: invalid logging level %q", cfg.Logging.Level)
	}
	if _, ok := allowedLogFormats[cfg.Logging.Format]; !ok {
		return fmt.Errorf("CONFIG_LOG_FORMAT: invalid logging format %q", cfg.Logging.Format)
	}
	if cfg.Build.MaxParallel < 0 {
		return fmt.Errorf("CONFIG_BUILD_PARALLEL: max_parallel must be >= 0, got %d", cfg.Build.MaxParallel)
	}
	if _, err := time.ParseDuration(cfg.Build.Timeout); err != nil {
		return fmt.Errorf("CONFIG_BUILD_TIMEOUT: invalid timeout %q: %w", cfg.Build.Timeout, err)
	}
	if cfg.Cache.Enabled && cfg.Cache.BaseURL == "" {
		return fmt.Errorf("CONFIG_CACHE_URL: cache is enabled but base_url is empty")
	}

	names := map[string]struct{}{}
	for _, r := range cfg.Repos {
		if r.Name == "" {
			return fmt.Errorf("CONFIG_REPO_NAME: repo entry missing name")
		}
		if _, ok := names[r.Name]; ok {
			return fmt.Errorf("CONFIG_REPO_DUP: duplicate repo name %q", r.Name)
		}
		names[r.Name] = struct{}{}
		if r.URL == "" {
			return fmt.Errorf("CONFIG_REPO_URL: repo %q missing url", r.Name)
		}
	}
	return nil
}
