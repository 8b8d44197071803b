package cache

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"pygr/internal/errs"
	"pygr/internal/store"
)

// buildArtifact renders a single-file tar, compresses it with zstd,
// and returns the compressed bytes plus the hex digest of that
// compressed stream (what the sibling .sha256 file would hold).
func buildArtifact(t *testing.T, fileName, content string) ([]byte, string) {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	hdr := &tar.Header{Name: fileName, Mode: 0o644, Size: int64(len(content))}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("tar Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}

	var zstdBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zstdBuf)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	if _, err := zw.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("zstd Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd Close: %v", err)
	}

	sum := sha256.Sum256(zstdBuf.Bytes())
	return zstdBuf.Bytes(), hex.EncodeToString(sum[:])
}

func newTestServer(t *testing.T, key store.Key, artifact []byte, digest string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/"+string(key)+".tar.zst", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write(artifact)
	})
	mux.HandleFunc("/"+string(key)+".sha256", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(digest + "\n"))
	})
	mux.HandleFunc("/missing.tar.zst", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestLookupHit(t *testing.T) {
	key := store.Key("abc123")
	artifact, digest := buildArtifact(t, "bin/tool", "hello")
	srv := newTestServer(t, key, artifact, digest)
	defer srv.Close()

	c := New(srv.URL)
	hit, err := c.Lookup(context.Background(), key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !hit {
		t.Error("Lookup() = miss, want hit")
	}
}

func TestLookupMiss(t *testing.T) {
	key := store.Key("abc123")
	artifact, digest := buildArtifact(t, "bin/tool", "hello")
	srv := newTestServer(t, key, artifact, digest)
	defer srv.Close()

	c := New(srv.URL)
	hit, err := c.Lookup(context.Background(), store.Key("doesnotexist"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if hit {
		t.Error("Lookup() = hit, want miss")
	}
}

func TestDownloadAndExtractVerifiesDigestAndExtracts(t *testing.T) {
	key := store.Key("abc123")
	artifact, digest := buildArtifact(t, "bin/tool", "hello")
	srv := newTestServer(t, key, artifact, digest)
	defer srv.Close()

	c := New(srv.URL)
	dest := t.TempDir()
	if err := c.DownloadAndExtract(context.Background(), key, dest); err != nil {
		t.Fatalf("DownloadAndExtract: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "bin", "tool"))
	if err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("extracted content = %q, want %q", data, "hello")
	}
}

func TestDownloadAndExtractRejectsDigestMismatch(t *testing.T) {
	key := store.Key("abc123")
	artifact, _ := buildArtifact(t, "bin/tool", "hello")
	srv := newTestServer(t, key, artifact, "0000000000000000000000000000000000000000000000000000000000000000")
	defer srv.Close()

	c := New(srv.URL)
	dest := t.TempDir()
	err := c.DownloadAndExtract(context.Background(), key, dest)
	if !errs.Is(err, errs.CacheCorrupt) {
		t.Fatalf("DownloadAndExtract() = %v, want CacheCorrupt", err)
	}
}

func TestDownloadAndExtractRejectsPathTraversal(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	_ = tw.WriteHeader(&tar.Header{Name: "../../etc/passwd", Mode: 0o644, Size: 3})
	_, _ = tw.Write([]byte("bad"))
	_ = tw.Close()
	var zstdBuf bytes.Buffer
	zw, _ := zstd.NewWriter(&zstdBuf)
	_, _ = zw.Write(tarBuf.Bytes())
	_ = zw.Close()
	sum := sha256.Sum256(zstdBuf.Bytes())
	digest := hex.EncodeToString(sum[:])

	key := store.Key("evil")
	srv := newTestServer(t, key, zstdBuf.Bytes(), digest)
	defer srv.Close()

	c := New(srv.URL)
	dest := t.TempDir()
	err := c.DownloadAndExtract(context.Background(), key, dest)
	if err == nil {
		t.Fatal("DownloadAndExtract() = nil, want error for path traversal member")
	}
}
