// Package buildtype inspects a fetched source tree and infers a
// canonical build command sequence when a recipe does not already
// supply one.
package buildtype

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Descriptor is the detected (or recipe-declared) build plan for one
// package. Text is a stable, deterministic rendering used as an input
// to the build fingerprint.
type Descriptor struct {
	System  string
	Build   []string
	Install []string
}

// Text renders a deterministic description of the descriptor for use
// in the build fingerprint.
func (d Descriptor) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "system=%s\n", d.System)
	for _, c := range d.Build {
		fmt.Fprintf(&b, "build=%s\n", c)
	}
	for _, c := range d.Install {
		fmt.Fprintf(&b, "install=%s\n", c)
	}
	return b.String()
}

type detector struct {
	name  string
	match func(root string) bool
	plan  func(root string) Descriptor
}

// detectors is consulted in order; the first match wins, matching the
// detection priority: Rust, Go, CMake, Meson, Makefile, Node (with a
// bin field), Python, Ruby, Justfile.
var detectors = []detector{
	{
		name:  "cargo",
		match: existsAny("Cargo.toml"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "cargo",
				Build:   []string{"cargo build --release"},
				Install: []string{"install -D -m755 target/release/* {{prefix}}/bin/"},
			}
		},
	},
	{
		name:  "go",
		match: existsAny("go.mod"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "go",
				Build:   []string{"go build -o {{prefix}}/bin/ ./..."},
				Install: nil,
			}
		},
	},
	{
		name:  "cmake",
		match: existsAny("CMakeLists.txt"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "cmake",
				Build:   []string{"cmake -S . -B build -DCMAKE_INSTALL_PREFIX={{prefix}}", "cmake --build build"},
				Install: []string{"cmake --install build"},
			}
		},
	},
	{
		name:  "meson",
		match: existsAny("meson.build"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "meson",
				Build:   []string{"meson setup build --prefix={{prefix}}", "ninja -C build"},
				Install: []string{"ninja -C build install"},
			}
		},
	},
	{
		name:  "make",
		match: existsAny("Makefile", "makefile", "GNUmakefile"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "make",
				Build:   []string{"make"},
				Install: []string{"make install PREFIX={{prefix}}"},
			}
		},
	},
	{
		name:  "node",
		match: hasNodeBinField,
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "node",
				Build:   nil,
				Install: []string{"cp -R . {{prefix}}/"},
			}
		},
	},
	{
		name:  "python",
		match: existsAny("pyproject.toml", "setup.py", "setup.cfg"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "python",
				Build:   []string{"python -m build --wheel"},
				Install: []string{"pip install --prefix={{prefix}} dist/*.whl"},
			}
		},
	},
	{
		name:  "ruby",
		match: existsAny("Gemfile"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "ruby",
				Build:   []string{"bundle install --deployment --path {{prefix}}/vendor/bundle"},
				Install: nil,
			}
		},
	},
	{
		name:  "just",
		match: existsAny("Justfile", "justfile"),
		plan: func(root string) Descriptor {
			return Descriptor{
				System:  "just",
				Build:   nil,
				Install: []string{"just install"},
			}
		},
	},
}

// Detect returns the canonical build descriptor for the source tree
// rooted at sourceRoot, using the first detector whose marker file is
// present. If nothing matches, it returns a zero Descriptor with
// System "none"; callers should treat that as NoBuildSystem.
func Detect(sourceRoot string) Descriptor {
	for _, d := range detectors {
		if d.match(sourceRoot) {
			return d.plan(sourceRoot)
		}
	}
	return Descriptor{System: "none"}
}

// NoBuildSystem reports whether a Descriptor represents "nothing
// matched".
func (d Descriptor) NoBuildSystem() bool {
	return d.System == "none" || d.System == ""
}

func existsAny(names ...string) func(root string) bool {
	return func(root string) bool {
		for _, name := range names {
			if _, err := os.Stat(filepath.Join(root, name)); err == nil {
				return true
			}
		}
		return false
	}
}

// hasNodeBinField reports whether package.json exists and declares a
// "bin" field, distinguishing an installable CLI package from a plain
// library manifest.
func hasNodeBinField(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false
	}
	// A narrow textual check is enough here: the detector only needs
	// to know the field is present, not parse the whole document.
	return strings.Contains(string(data), `"bin"`)
}
