package config

// Normalize fills in zero-valued fields with their defaults, so a
// hand-edited config file only needs to specify what it overrides.
func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Build.Timeout == "" {
		cfg.Build.Timeout = "30m"
	}
	return cfg
}
