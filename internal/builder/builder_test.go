package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pygr/internal/audit"
	"pygr/internal/errs"
	"pygr/internal/sandbox"
	"pygr/internal/store"
)

type fakeFetcher struct {
	sourceDir   string
	fingerprint [32]byte
	err         error
}

func (f *fakeFetcher) Fetch(ctx context.Context, repoURL, ref string) (string, [32]byte, error) {
	return f.sourceDir, f.fingerprint, f.err
}

type fakeCache struct {
	hit bool
}

func (f *fakeCache) Lookup(ctx context.Context, key store.Key) (bool, error) { return f.hit, nil }
func (f *fakeCache) DownloadAndExtract(ctx context.Context, key store.Key, dest string) error {
	return os.MkdirAll(dest, 0o755)
}

func newTestService(t *testing.T, sourceDir string) (*Service, *store.Store) {
	t.Helper()
	tmp := t.TempDir()
	storeRoot := filepath.Join(tmp, "store")
	if err := os.MkdirAll(storeRoot, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	s := store.New(storeRoot)
	svc := &Service{
		Fetcher:     &fakeFetcher{sourceDir: sourceDir, fingerprint: [32]byte{1, 2, 3}},
		Store:       s,
		Sandbox:     sandbox.New(""),
		StagingRoot: filepath.Join(tmp, "staging"),
		Logger:      audit.New(""),
	}
	return svc, s
}

func TestBuildRunsRecipeCommandsAndInserts(t *testing.T) {
	source := t.TempDir()
	svc, s := newTestService(t, source)

	plan := Plan{
		Name:            "hello",
		Version:         "1.0.0",
		BuildCommands:   []string{"echo building"},
		InstallCommands: []string{"mkdir -p {{prefix}}/bin", "sh -c 'echo hi > {{prefix}}/bin/hello'"},
	}
	key, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !s.Has(key) {
		t.Fatalf("store does not have key %q after Build", key)
	}
	if _, err := os.Stat(filepath.Join(s.ArtifactPath(key), "bin", "hello")); err != nil {
		t.Errorf("expected installed binary: %v", err)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	source := t.TempDir()
	svc, _ := newTestService(t, source)
	plan := Plan{
		Name:            "hello",
		BuildCommands:   []string{"true"},
		InstallCommands: []string{"mkdir -p {{prefix}}/bin"},
	}
	key1, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	key2, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if key1 != key2 {
		t.Errorf("rebuild of identical plan produced different keys: %q != %q", key1, key2)
	}
}

func TestBuildNoBuildSystemDetected(t *testing.T) {
	source := t.TempDir() // empty: no build system markers
	svc, _ := newTestService(t, source)
	_, err := svc.Build(context.Background(), Plan{Name: "mystery"})
	if !errs.Is(err, errs.NoBuildSystem) {
		t.Fatalf("Build() = %v, want NoBuildSystem", err)
	}
}

func TestBuildFastPathSkipsCacheAndSandboxOnStoreHit(t *testing.T) {
	source := t.TempDir()
	svc, s := newTestService(t, source)
	plan := Plan{
		Name:            "hello",
		BuildCommands:   []string{"true"},
		InstallCommands: []string{"mkdir -p {{prefix}}/bin"},
	}
	key, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !s.Has(key) {
		t.Fatalf("expected key present")
	}

	svc.Sandbox = nil // if the fast path tried to run commands this would panic
	key2, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if key != key2 {
		t.Errorf("fast-path key mismatch: %q != %q", key, key2)
	}
}

func TestBuildUsesCacheHitWhenStoreMisses(t *testing.T) {
	source := t.TempDir()
	svc, s := newTestService(t, source)
	svc.Cache = &fakeCache{hit: true}
	svc.Sandbox = nil // cache hit must short-circuit before any sandbox invocation

	plan := Plan{Name: "cached", BuildCommands: []string{"true"}, InstallCommands: []string{"true"}}
	key, err := svc.Build(context.Background(), plan)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !s.Has(key) {
		t.Fatalf("expected cache-imported key present")
	}
}
