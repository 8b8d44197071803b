// Package pkgversion implements the dotted-numeric version ordering
// and constraint predicate algebra the specification's data model
// names: versions compare by common dotted-numeric ordering with
// pre-release suffix handling, and constraints are conjunctions of
// (op, version) clauses.
package pkgversion

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed dotted-numeric token, optionally carrying a
// "+build" metadata suffix and a "-prerelease" suffix. Two versions
// that differ only in build metadata compare equal.
type Version struct {
	raw        string
	numeric    []int64
	prerelease string
}

// Parse parses a version token of the form "1.2.3-rc.1+meta". Missing
// numeric components default to 0 so "1.2" and "1.2.0" are equal.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Version{}, fmt.Errorf("pkgversion: empty version")
	}
	core := trimmed
	if idx := strings.IndexByte(core, '+'); idx >= 0 {
		core = core[:idx]
	}
	prerelease := ""
	if idx := strings.IndexByte(core, '-'); idx >= 0 {
		prerelease = core[idx+1:]
		core = core[:idx]
	}
	// The common case of a bare MAJOR.MINOR.PATCH token is exactly what
	// golang.org/x/mod/semver validates; lean on it to reject malformed
	// numeric components (leading zeros, empty segments) before the
	// looser component-by-component parse below, which also accepts
	// the shorter/longer forms semver does not (e.g. "1.2" or "1.2.3.4").
	if strings.Count(core, ".") == 2 && prerelease == "" && !semver.IsValid("v"+core) {
		return Version{}, fmt.Errorf("pkgversion: %q is not a valid version", raw)
	}

	parts := strings.Split(core, ".")
	numeric := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("pkgversion: invalid numeric component %q in %q", p, raw)
		}
		numeric[i] = n
	}
	return Version{raw: trimmed, numeric: numeric, prerelease: prerelease}, nil
}

// MustParse is Parse but panics on error; used for compile-time-known
// literals in tests and defaults.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string { return v.raw }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, using dotted-numeric ordering with the common semantic-
// versioning rule that a pre-release is ordered before its release
// (1.0.0-rc1 < 1.0.0) and compares lexicographically against another
// pre-release suffix.
func (v Version) Compare(other Version) int {
	n := len(v.numeric)
	if len(other.numeric) > n {
		n = len(other.numeric)
	}
	for i := 0; i < n; i++ {
		a, b := component(v.numeric, i), component(other.numeric, i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	switch {
	case v.prerelease == "" && other.prerelease == "":
		return 0
	case v.prerelease == "":
		return 1
	case other.prerelease == "":
		return -1
	case v.prerelease < other.prerelease:
		return -1
	case v.prerelease > other.prerelease:
		return 1
	default:
		return 0
	}
}

func component(parts []int64, i int) int64 {
	if i >= len(parts) {
		return 0
	}
	return parts[i]
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal (build metadata and
// trailing zero components are insignificant).
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }
