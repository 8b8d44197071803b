// Package recipe parses YAML recipe documents and maintains the set of
// cloned recipe-repo catalogs a resolver searches against.
package recipe

import "pygr/internal/pkgversion"

// Source describes where a recipe's upstream code lives.
type Source struct {
	Kind string `yaml:"kind"`
	Repo string `yaml:"repo"`
	Ref  string `yaml:"ref"`
}

// Dependency is one entry in a recipe's dependency list.
type Dependency struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

// Recipe is a parsed, validated recipe document.
type Recipe struct {
	Name            string             `yaml:"name"`
	Version         string             `yaml:"version"`
	Source          Source             `yaml:"source"`
	Build           []string           `yaml:"build"`
	Install         []string           `yaml:"install"`
	Dependencies    []Dependency       `yaml:"dependencies"`
	PrefixPlaceholder string           `yaml:"prefix_placeholder"`

	// parsedVersion is populated by Parse for candidate ordering and
	// constraint matching; it is not part of the YAML wire shape.
	parsedVersion pkgversion.Version
}

// ParsedVersion returns the structured version Parse computed for this
// recipe.
func (r Recipe) ParsedVersion() pkgversion.Version {
	return r.parsedVersion
}

// RepoEntry is one added recipe repository.
type RepoEntry struct {
	Name            string
	URL             string
	LocalClonePath  string
	LastRefreshTime string
}
