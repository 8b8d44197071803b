// Package syspm probes the host's system package manager for a
// package's presence, backing the install fast path scenario 1
// describes: when the system PM already has a package, pygr records
// that fact in the declarative state instead of building from source.
package syspm

import (
	"context"
	"os/exec"
)

// manager pairs a PM name with the query invocation that reports
// whether name is already installed on this host.
type manager struct {
	name   string
	binary string
	query  func(ctx context.Context, name string) *exec.Cmd
}

// candidates is tried in order; the first binary found on PATH is
// treated as the host's system PM. Only one is ever probed per
// invocation, matching the specification's single-system-PM model.
var candidates = []manager{
	{
		name:   "apt",
		binary: "dpkg",
		query:  func(ctx context.Context, name string) *exec.Cmd { return exec.CommandContext(ctx, "dpkg", "-s", name) },
	},
	{
		name:   "dnf",
		binary: "rpm",
		query:  func(ctx context.Context, name string) *exec.Cmd { return exec.CommandContext(ctx, "rpm", "-q", name) },
	},
	{
		name:   "pacman",
		binary: "pacman",
		query:  func(ctx context.Context, name string) *exec.Cmd { return exec.CommandContext(ctx, "pacman", "-Qi", name) },
	},
	{
		name:   "zypper",
		binary: "zypper",
		query:  func(ctx context.Context, name string) *exec.Cmd { return exec.CommandContext(ctx, "rpm", "-q", name) },
	},
	{
		name:   "apk",
		binary: "apk",
		query:  func(ctx context.Context, name string) *exec.Cmd { return exec.CommandContext(ctx, "apk", "info", "-e", name) },
	},
}

// Detect reports the name of the host's system package manager, or
// "" if none of the candidates is present on PATH.
func Detect() string {
	for _, m := range candidates {
		if _, err := exec.LookPath(m.binary); err == nil {
			return m.name
		}
	}
	return ""
}

// Available reports whether the host's detected system PM already has
// pkgName installed. It returns false when no system PM was detected
// or the package is simply absent; both cases
// mean the caller should fall through to the recipe/remote-repo
// install routes.
func Available(ctx context.Context, pm, pkgName string) bool {
	for _, m := range candidates {
		if m.name != pm {
			continue
		}
		if _, err := exec.LookPath(m.binary); err != nil {
			return false
		}
		return m.query(ctx, pkgName).Run() == nil
	}
	return false
}
