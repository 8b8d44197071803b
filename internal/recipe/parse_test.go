package recipe

import (
	"testing"

	"pygr/internal/errs"
)

const validYAML = `
name: libz
version: 1.2.13
source:
  kind: remote-repo
  repo: madler/zlib
  ref: v1.2.13
build:
  - "./configure --prefix={{prefix}}"
  - "make"
install:
  - "make install"
dependencies:
  - name: cc
    constraint: ">=1.0"
`

func TestParseValidRecipe(t *testing.T) {
	r, err := Parse([]byte(validYAML), "libz.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Name != "libz" || r.Version != "1.2.13" {
		t.Fatalf("unexpected recipe: %+v", r)
	}
	if r.Source.Kind != "remote-repo" || r.Source.Repo != "madler/zlib" {
		t.Fatalf("unexpected source: %+v", r.Source)
	}
	if len(r.Dependencies) != 1 || r.Dependencies[0].Name != "cc" {
		t.Fatalf("unexpected dependencies: %+v", r.Dependencies)
	}
}

func TestParseMissingRequiredField(t *testing.T) {
	cases := []string{
		"name: x\nsource:\n  kind: remote-repo\n  repo: a/b\n",      // missing version
		"version: 1.0\nsource:\n  kind: remote-repo\n  repo: a/b\n", // missing name
		"name: x\nversion: 1.0\nsource:\n  repo: a/b\n",             // missing source.kind
		"name: x\nversion: 1.0\nsource:\n  kind: remote-repo\n",     // missing source.repo
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c), "bad.yaml"); !errs.Is(err, errs.RecipeMalformed) {
			t.Errorf("Parse(%q) = %v, want RecipeMalformed", c, err)
		}
	}
}

func TestParseRejectsUnknownPlaceholder(t *testing.T) {
	bad := `
name: x
version: 1.0.0
source:
  kind: remote-repo
  repo: a/b
build:
  - "make {{datadir}}"
`
	if _, err := Parse([]byte(bad), "bad.yaml"); !errs.Is(err, errs.RecipeMalformed) {
		t.Fatalf("Parse() = %v, want RecipeMalformed for unknown placeholder", err)
	}
}

func TestParseRejectsInvalidVersion(t *testing.T) {
	bad := `
name: x
version: not-a-version
source:
  kind: remote-repo
  repo: a/b
`
	if _, err := Parse([]byte(bad), "bad.yaml"); !errs.Is(err, errs.RecipeMalformed) {
		t.Fatalf("Parse() = %v, want RecipeMalformed for invalid version", err)
	}
}

func TestParseRejectsInvalidDependencyConstraint(t *testing.T) {
	bad := `
name: x
version: 1.0.0
source:
  kind: remote-repo
  repo: a/b
dependencies:
  - name: y
    constraint: "!!!"
`
	if _, err := Parse([]byte(bad), "bad.yaml"); !errs.Is(err, errs.RecipeMalformed) {
		t.Fatalf("Parse() = %v, want RecipeMalformed for invalid dependency constraint", err)
	}
}
