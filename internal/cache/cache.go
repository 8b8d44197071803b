// Package cache implements the binary cache client: a prebuilt
// artifact lookup and download path that lets Build skip the sandbox
// entirely when someone else has already produced the same build
// fingerprint.
package cache

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"

	"pygr/internal/errs"
	"pygr/internal/security"
	"pygr/internal/store"
)

// Client talks to a binary cache HTTP endpoint. One artifact is named
// "<base>/<key>.tar.zst" with a sibling "<base>/<key>.sha256" holding
// the hex SHA-256 digest of the compressed .tar.zst stream.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	maxRetries int
	baseDelay  time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

// New builds a Client with a DNS-cached dial path and per-host circuit
// breaking, so a flaky or unreachable cache mirror degrades to "miss"
// quickly instead of stalling every build.
func New(baseURL string) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					var lastErr error
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
						lastErr = err
					}
					return nil, lastErr
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		breakers:   make(map[string]*circuit.Breaker),
	}
}

func (c *Client) artifactURL(key store.Key) string {
	return fmt.Sprintf("%s/%s.tar.zst", c.BaseURL, key)
}

func (c *Client) digestURL(key store.Key) string {
	return fmt.Sprintf("%s/%s.sha256", c.BaseURL, key)
}

func (c *Client) breaker() *circuit.Breaker {
	host := c.BaseURL
	if u, err := url.Parse(c.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}

	c.mu.RLock()
	b, ok := c.breakers[host]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[host]; ok {
		return b
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()
	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	c.breakers[host] = b
	return b
}

// Lookup issues an HTTP HEAD for key's artifact. A 200 is a hit and a
// 404 a clean miss; any other status or a transport failure is
// CacheError. An open circuit breaker is reported as a miss.
func (c *Client) Lookup(ctx context.Context, key store.Key) (bool, error) {
	breaker := c.breaker()
	if !breaker.Ready() {
		return false, nil // open circuit: treat as miss, let the build proceed
	}

	var hit bool
	err := breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.artifactURL(key), nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			hit = true
			return nil
		case resp.StatusCode == http.StatusNotFound:
			hit = false
			return nil
		default:
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
	}, 0)
	if err != nil {
		return false, errs.Wrap(errs.CacheError, "CACHE_LOOKUP", err, "looking up %q", key)
	}
	return hit, nil
}

// DownloadAndExtract streams key's artifact, verifies it against the
// accompanying digest file, and extracts it into dest. dest must
// already exist; entries are rejected if they would escape it.
func (c *Client) DownloadAndExtract(ctx context.Context, key store.Key, dest string) error {
	wantDigest, err := c.fetchDigest(ctx, key)
	if err != nil {
		return err
	}

	body, err := c.fetchWithRetry(ctx, c.artifactURL(key))
	if err != nil {
		return err
	}
	defer body.Close()

	hasher := sha256.New()
	tee := io.TeeReader(body, hasher)

	zr, err := zstd.NewReader(tee)
	if err != nil {
		return errs.Wrap(errs.CacheCorrupt, "CACHE_ZSTD", err, "opening zstd stream for %q", key)
	}
	defer zr.Close()

	if err := extractTar(zr, dest); err != nil {
		return errs.Wrap(errs.CacheCorrupt, "CACHE_EXTRACT", err, "extracting %q", key)
	}

	// Drain any trailing bytes so the hash covers the whole compressed
	// stream, matching what the digest file was computed over.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return errs.Wrap(errs.CacheCorrupt, "CACHE_DRAIN", err, "draining stream for %q", key)
	}
	got := hex.EncodeToString(hasher.Sum(nil))
	if got != wantDigest {
		return errs.New(errs.CacheCorrupt, "CACHE_DIGEST_MISMATCH", "digest mismatch for %q: got %s want %s", key, got, wantDigest)
	}
	return nil
}

func (c *Client) fetchDigest(ctx context.Context, key store.Key) (string, error) {
	body, err := c.fetchWithRetry(ctx, c.digestURL(key))
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, 256))
	if err != nil {
		return "", errs.Wrap(errs.CacheError, "CACHE_DIGEST_READ", err, "reading digest for %q", key)
	}
	digest := strings.TrimSpace(strings.Fields(string(data))[0])
	return digest, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(float64(delay) * (rand.Float64() * 0.1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay + jitter):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
		if resp.StatusCode == http.StatusNotFound {
			break
		}
	}
	return nil, errs.Wrap(errs.CacheError, "CACHE_FETCH", lastErr, "fetching %q", rawURL)
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := security.SafeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := security.ValidateNoSymlinkPath(dest, target); err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)|0o200)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			return fmt.Errorf("CACHE_SYMLINK_REJECTED: refusing to extract symlink member %q", hdr.Name)
		default:
			// skip other entry types (device nodes, fifos) silently
		}
	}
}
