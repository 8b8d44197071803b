package store

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactManifest records what produced an installed artifact.
type ArtifactManifest struct {
	Name               string
	Version            string
	DependencyKeys     []Key
	FetchedRef         string
	SourceTreeFingerprint string
	BuildFingerprint   Key
	BuildTime          time.Time
}

// Render serializes a manifest to the store's plain-text line format,
// matching the declarative state file's grammar conventions: one
// "key: value" pair per line, comma-separated lists for repeated
// fields.
func (m ArtifactManifest) Render() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", m.Name)
	fmt.Fprintf(&b, "version: %s\n", m.Version)
	fmt.Fprintf(&b, "fetched-ref: %s\n", m.FetchedRef)
	fmt.Fprintf(&b, "source-tree-fingerprint: %s\n", m.SourceTreeFingerprint)
	fmt.Fprintf(&b, "build-fingerprint: %s\n", m.BuildFingerprint)
	fmt.Fprintf(&b, "build-time: %s\n", m.BuildTime.UTC().Format(time.RFC3339))
	deps := make([]string, len(m.DependencyKeys))
	for i, k := range m.DependencyKeys {
		deps[i] = string(k)
	}
	fmt.Fprintf(&b, "dependency-keys: %s\n", strings.Join(deps, ","))
	return []byte(b.String())
}

// ParseManifest parses the text form Render produces.
func ParseManifest(data []byte) (ArtifactManifest, error) {
	var m ArtifactManifest
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return ArtifactManifest{}, fmt.Errorf("store: malformed manifest line %q", line)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name":
			m.Name = value
		case "version":
			m.Version = value
		case "fetched-ref":
			m.FetchedRef = value
		case "source-tree-fingerprint":
			m.SourceTreeFingerprint = value
		case "build-fingerprint":
			m.BuildFingerprint = Key(value)
		case "build-time":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return ArtifactManifest{}, fmt.Errorf("store: malformed build-time %q: %w", value, err)
			}
			m.BuildTime = t
		case "dependency-keys":
			if value != "" {
				for _, k := range strings.Split(value, ",") {
					m.DependencyKeys = append(m.DependencyKeys, Key(k))
				}
			}
		}
	}
	return m, nil
}
