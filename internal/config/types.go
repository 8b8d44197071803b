package config

// Config is the frozen v1 global schema, stored at
// "<root>/config/pygr.toml".
type Config struct {
	Version int           `toml:"version"`
	Sandbox SandboxConfig `toml:"sandbox"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
	Build   BuildConfig   `toml:"build"`
	Repos   []RepoConfig  `toml:"repos,omitempty"`
}

// SandboxConfig controls the default isolation policy handed to every
// build. Recipes carry no sandbox settings of their own.
type SandboxConfig struct {
	NetworkOn bool   `toml:"network_on"`
	Helper    string `toml:"helper,omitempty"`
}

// CacheConfig names the binary cache mirror consulted before falling
// back to a source build.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url,omitempty"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// BuildConfig bounds resource usage of the build pipeline.
type BuildConfig struct {
	MaxParallel int    `toml:"max_parallel"`
	Timeout     string `toml:"timeout"`
}

// RepoConfig is a recipe repository pinned in the global config, added
// automatically at startup via Catalog.AddRepo if not already cloned.
type RepoConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}
