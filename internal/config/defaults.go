package config

const SchemaVersion = 1

// DefaultConfig returns a fully populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Sandbox: SandboxConfig{
			NetworkOn: false,
		},
		Cache: CacheConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Build: BuildConfig{
			MaxParallel: 0, // 0 means "derive from NumCPU" at the builder layer
			Timeout:     "30m",
		},
	}
}
