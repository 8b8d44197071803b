// Package fetcher materializes a source tree from a remote
// version-controlled repository at a named revision and computes a
// deterministic content fingerprint over the checked-out tree.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenk/backoff"

	"pygr/internal/errs"
)

type gitExecFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

func defaultGitExec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(out))
	}
	return out, nil
}

// Fetcher clones or updates remote repositories into a local cache and
// checks them out at a requested ref.
type Fetcher struct {
	cacheRoot string
	execGit   gitExecFunc

	// retry tuning; zero values fall back to the defaults used below.
	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int
}

// New creates a Fetcher that clones into cacheRoot.
func New(cacheRoot string) *Fetcher {
	return &Fetcher{
		cacheRoot:   cacheRoot,
		execGit:     defaultGitExec,
		backoffBase: 500 * time.Millisecond,
		backoffCap:  8 * time.Second,
		maxAttempts: 3,
	}
}

// LocalPath returns the deterministic local clone path for repoURL,
// without requiring that it has been cloned yet.
func (f *Fetcher) LocalPath(repoURL string) string {
	h := sha256.Sum256([]byte(repoURL))
	short := hex.EncodeToString(h[:])[:16]
	return filepath.Join(f.cacheRoot, short)
}

// Fetch clones repoURL if it is not already cached, or performs an
// incremental update otherwise, checks out ref, and returns the local
// path and the tree fingerprint of the checked-out source.
func (f *Fetcher) Fetch(ctx context.Context, repoURL, ref string) (string, [32]byte, error) {
	dest := f.LocalPath(repoURL)

	if err := f.withRetry(ctx, func() error {
		if isGitRepo(dest) {
			if _, err := f.execGit(ctx, dest, "fetch", "--tags", "--force", "origin"); err != nil {
				return err
			}
			return nil
		}
		if err := os.MkdirAll(f.cacheRoot, 0o700); err != nil {
			return backoff.Permanent(err)
		}
		_, err := f.execGit(ctx, "", "clone", repoURL, dest)
		return err
	}); err != nil {
		return "", [32]byte{}, errs.Wrap(errs.FetchFailed, "FETCH_CLONE", err, "fetching %q", repoURL)
	}

	resolved, err := f.resolveRef(ctx, dest, ref)
	if err != nil {
		return "", [32]byte{}, errs.Wrap(errs.FetchFailed, "FETCH_RESOLVE_REF", err, "resolving ref %q in %q", ref, repoURL)
	}

	if _, err := f.execGit(ctx, dest, "checkout", "--force", resolved); err != nil {
		return "", [32]byte{}, errs.Wrap(errs.FetchFailed, "FETCH_CHECKOUT", err, "checking out %q in %q", resolved, repoURL)
	}

	fp, err := TreeFingerprint(dest)
	if err != nil {
		return "", [32]byte{}, errs.Wrap(errs.FetchFailed, "FETCH_FINGERPRINT", err, "fingerprinting %q", dest)
	}
	return dest, fp, nil
}

// resolveRef implements the "ambiguous refs resolve to the tag" rule:
// a ref that exists as both a tag and a branch checks out the tag.
func (f *Fetcher) resolveRef(ctx context.Context, dest, ref string) (string, error) {
	if _, err := f.execGit(ctx, dest, "rev-parse", "--verify", "--quiet", "refs/tags/"+ref); err == nil {
		return "refs/tags/" + ref, nil
	}
	if _, err := f.execGit(ctx, dest, "rev-parse", "--verify", "--quiet", "origin/"+ref); err == nil {
		return "origin/" + ref, nil
	}
	// Bare commit SHA or anything else git itself can resolve.
	return ref, nil
}

// withRetry runs op up to maxAttempts times with exponential backoff
// (base backoffBase, cap backoffCap) between attempts.
func (f *Fetcher) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.backoffBase
	b.MaxInterval = f.backoffCap
	b.Multiplier = 2
	b.Reset()

	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.NextBackOff()):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := op(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func isGitRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
