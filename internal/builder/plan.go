// Package builder drives one package end-to-end: fetch its source,
// determine its build steps, run them inside the sandbox, and install
// the result into the content-addressed store.
package builder

import (
	"pygr/internal/sandbox"
	"pygr/internal/store"
)

// Plan is everything the Builder needs to produce one artifact.
type Plan struct {
	Name    string
	Version string

	// RepoURL and Ref locate the source; Ref is a branch, tag, or
	// 40-hex commit understood by the fetcher.
	RepoURL string
	Ref     string

	// BuildCommands and InstallCommands come from a recipe when one
	// supplied them; if both are nil the builder falls back to
	// buildtype.Detect.
	BuildCommands   []string
	InstallCommands []string

	// DependencyArtifacts are already-built store keys this package
	// depends on, in the resolver's pinned order.
	DependencyArtifacts []store.Key

	PrefixTemplate string
	SandboxPolicy  sandbox.Policy
}
