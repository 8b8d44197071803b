package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadParsesAllEntryKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	content := "# a comment\n\nsystem:apt:curl\nremote-repo:BurntSushi/ripgrep@v13.0.0\nrecipe:libz@1.2.13\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f := New(path)
	entries, warnings, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(entries) != 3 {
		t.Fatalf("Read() = %+v, want 3 entries", entries)
	}
	if entries[0].Kind != KindSystem || entries[0].PM != "apt" || entries[0].Name != "curl" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Kind != KindRemoteRepo || entries[1].Name != "BurntSushi/ripgrep" || entries[1].Ref != "v13.0.0" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[2].Kind != KindRecipe || entries[2].Name != "libz" || entries[2].Version != "1.2.13" {
		t.Errorf("entries[2] = %+v", entries[2])
	}
}

func TestReadMissingFileReturnsEmpty(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.conf"))
	entries, _, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Read() = %+v, want empty", entries)
	}
}

func TestReadDuplicateKeepsLastOccurrenceAndWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	content := "recipe:libz@1.2.11\nsystem:apt:curl\nrecipe:libz@1.2.13\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f := New(path)
	entries, warnings, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", warnings)
	}
	if len(entries) != 2 {
		t.Fatalf("Read() = %+v, want 2 entries (duplicate collapsed)", entries)
	}
	// last occurrence's version wins, at the position of its first mention.
	if entries[0].Kind != KindRecipe || entries[0].Version != "1.2.13" {
		t.Errorf("entries[0] = %+v, want libz@1.2.13", entries[0])
	}
}

func TestReadMalformedLineFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	if err := os.WriteFile(path, []byte("not-a-valid-entry\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f := New(path)
	if _, _, err := f.Read(); err == nil {
		t.Fatal("Read() = nil error, want parse failure")
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	f := New(path)
	entries := []Entry{
		{Kind: KindSystem, PM: "apt", Name: "curl"},
		{Kind: KindRecipe, Name: "libz", Version: "1.2.13"},
	}
	if err := f.Write(entries); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 || got[0].Name != "curl" || got[1].Name != "libz" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSyncFromCurrentPreservesSystemEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	f := New(path)
	if err := f.Write([]Entry{
		{Kind: KindSystem, PM: "apt", Name: "curl"},
		{Kind: KindRecipe, Name: "stale", Version: "0.0.1"},
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := f.SyncFromCurrent([]ManifestArtifact{{Name: "libz", Version: "1.2.13"}}); err != nil {
		t.Fatalf("SyncFromCurrent: %v", err)
	}

	entries, _, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["curl"] {
		t.Errorf("expected system:apt:curl preserved, got %+v", entries)
	}
	if names["stale"] {
		t.Errorf("expected stale recipe entry dropped, got %+v", entries)
	}
	if !names["libz"] {
		t.Errorf("expected libz entry from manifest, got %+v", entries)
	}
}

func TestApplyInstallsEveryEntryInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.conf")
	f := New(path)
	if err := f.Write([]Entry{
		{Kind: KindRecipe, Name: "a", Version: "1.0.0"},
		{Kind: KindRecipe, Name: "b", Version: "1.0.0"},
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var installed []string
	inst := installerFunc(func(e Entry) error {
		installed = append(installed, e.Name)
		return nil
	})
	if err := f.Apply(inst); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if strings.Join(installed, ",") != "a,b" {
		t.Errorf("installed = %v, want a,b in order", installed)
	}
}

type installerFunc func(Entry) error

func (f installerFunc) Install(e Entry) error { return f(e) }
