package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pygr/internal/errs"
)

func TestFetchExhaustsRetriesAndReturnsFetchFailed(t *testing.T) {
	tmp := t.TempDir()
	f := New(filepath.Join(tmp, "cache"))
	f.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		return nil, errors.New("simulated network failure")
	}
	f.backoffBase = 1
	f.backoffCap = 2
	f.maxAttempts = 3

	attempts := 0
	f.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		attempts++
		return nil, errors.New("simulated network failure")
	}

	_, _, err := f.Fetch(context.Background(), "https://example.com/repo.git", "main")
	if !errs.Is(err, errs.FetchFailed) {
		t.Fatalf("Fetch() = %v, want FetchFailed", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchSucceedsAfterTransientFailure(t *testing.T) {
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "cache")
	f := New(dest)
	f.backoffBase = 1
	f.backoffCap = 2

	calls := 0
	f.execGit = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
		calls++
		if len(args) > 0 && args[0] == "clone" {
			if calls == 1 {
				return nil, errors.New("transient")
			}
			return nil, os.MkdirAll(args[len(args)-1], 0o755)
		}
		return nil, nil
	}

	localPath, _, err := f.Fetch(context.Background(), "https://example.com/repo.git", "main")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, statErr := os.Stat(localPath); statErr != nil {
		t.Errorf("expected local path %q to exist: %v", localPath, statErr)
	}
}

func TestTreeFingerprintStableAcrossRewrite(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	fpA, err := TreeFingerprint(dirA)
	if err != nil {
		t.Fatalf("TreeFingerprint(dirA): %v", err)
	}
	fpB, err := TreeFingerprint(dirB)
	if err != nil {
		t.Fatalf("TreeFingerprint(dirB): %v", err)
	}
	if fpA != fpB {
		t.Errorf("fingerprints of identical trees differ: %x != %x", fpA, fpB)
	}
}

func TestTreeFingerprintExcludesGitDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	before, err := TreeFingerprint(dir)
	if err != nil {
		t.Fatalf("TreeFingerprint: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	after, err := TreeFingerprint(dir)
	if err != nil {
		t.Fatalf("TreeFingerprint: %v", err)
	}
	if before != after {
		t.Errorf("fingerprint changed after adding .git contents: %x != %x", before, after)
	}
}

func TestTreeFingerprintChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fp1, err := TreeFingerprint(dir)
	if err != nil {
		t.Fatalf("TreeFingerprint: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fp2, err := TreeFingerprint(dir)
	if err != nil {
		t.Fatalf("TreeFingerprint: %v", err)
	}
	if fp1 == fp2 {
		t.Errorf("fingerprint did not change after content changed")
	}
}
