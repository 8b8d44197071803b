package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func stageArtifact(t *testing.T, root string) string {
	t.Helper()
	staging := filepath.Join(root, "staging-1")
	if err := os.MkdirAll(filepath.Join(staging, "bin"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "bin", "tool"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := ArtifactManifest{Name: "tool", Version: "1.0.0", BuildTime: time.Now()}
	if err := os.WriteFile(filepath.Join(staging, ManifestName), m.Render(), 0o644); err != nil {
		t.Fatalf("WriteFile manifest: %v", err)
	}
	return staging
}

func TestInsertThenHas(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)
	staging := stageArtifact(t, tmp)

	key := Key("abc123")
	if s.Has(key) {
		t.Fatalf("Has() = true before insert")
	}
	if err := s.Insert(staging, key); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !s.Has(key) {
		t.Fatalf("Has() = false after insert")
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging dir should be gone after rename, stat err = %v", err)
	}
}

func TestInsertRaceTreatsExistingAsSuccess(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)
	key := Key("dup")

	first := stageArtifact(t, tmp)
	if err := s.Insert(first, key); err != nil {
		t.Fatalf("first Insert: %v", err)
	}

	second := filepath.Join(tmp, "staging-2")
	if err := os.MkdirAll(second, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := s.Insert(second, key); err != nil {
		t.Fatalf("second Insert should succeed when key exists: %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Errorf("second staging dir should have been discarded")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)
	staging := stageArtifact(t, tmp)
	key := Key("roundtrip")
	if err := s.Insert(staging, key); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	m, err := s.Manifest(key)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if m.Name != "tool" || m.Version != "1.0.0" {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestEnumerateListsAllKeys(t *testing.T) {
	tmp := t.TempDir()
	s := New(tmp)
	for _, k := range []Key{"one", "two", "three"} {
		staging := stageArtifact(t, tmp)
		if err := s.Insert(staging, k); err != nil {
			t.Fatalf("Insert(%q): %v", k, err)
		}
	}
	keys, err := s.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("Enumerate() = %v, want 3 keys", keys)
	}
}

func TestParseManifestRejectsMalformedLine(t *testing.T) {
	if _, err := ParseManifest([]byte("not-a-valid-line-without-colon")); err == nil {
		t.Fatalf("expected error for malformed manifest")
	}
}
