package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestEnsureCreatesAndLoadsConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "pygr.toml")
	cfg, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if cfg.Version != SchemaVersion {
		t.Fatalf("Version = %d, want %d", cfg.Version, SchemaVersion)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file should exist: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", loaded.Logging.Level)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() = nil, want error for unknown log level")
	}
}

func TestValidateRejectsCacheEnabledWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() = nil, want error for missing cache base_url")
	}
}

func TestValidateRejectsDuplicateRepoNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repos = []RepoConfig{
		{Name: "main", URL: "https://example.com/a.git"},
		{Name: "main", URL: "https://example.com/b.git"},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() = nil, want error for duplicate repo name")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Normalize(Config{})
	if cfg.Version != SchemaVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, SchemaVersion)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
	if cfg.Build.Timeout != "30m" {
		t.Errorf("Build.Timeout = %q, want 30m", cfg.Build.Timeout)
	}
}
