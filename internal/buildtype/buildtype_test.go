package buildtype

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestDetectPriorityRustBeatsMake(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml", "[package]\nname=\"x\"\n")
	touch(t, dir, "Makefile", "all:\n\techo hi\n")

	d := Detect(dir)
	if d.System != "cargo" {
		t.Errorf("System = %q, want cargo", d.System)
	}
}

func TestDetectGoModule(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod", "module x\n")
	d := Detect(dir)
	if d.System != "go" {
		t.Errorf("System = %q, want go", d.System)
	}
}

func TestDetectNodeRequiresBinField(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json", `{"name":"x","version":"1.0.0"}`)
	if d := Detect(dir); !d.NoBuildSystem() {
		t.Errorf("package.json without bin field should not match node, got %q", d.System)
	}
	touch(t, dir, "package.json", `{"name":"x","bin":{"x":"./cli.js"}}`)
	if d := Detect(dir); d.System != "node" {
		t.Errorf("System = %q, want node", d.System)
	}
}

func TestDetectNoneMatched(t *testing.T) {
	dir := t.TempDir()
	d := Detect(dir)
	if !d.NoBuildSystem() {
		t.Errorf("expected NoBuildSystem for empty tree, got %q", d.System)
	}
}

func TestDetectPriorityOrderCmakeBeforeMeson(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "CMakeLists.txt", "")
	touch(t, dir, "meson.build", "")
	d := Detect(dir)
	if d.System != "cmake" {
		t.Errorf("System = %q, want cmake", d.System)
	}
}

func TestDescriptorTextIsDeterministic(t *testing.T) {
	d := Descriptor{System: "make", Build: []string{"make"}, Install: []string{"make install"}}
	if got, want := d.Text(), "system=make\nbuild=make\ninstall=make install\n"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
