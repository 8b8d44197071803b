package recipe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pygr/internal/errs"
	"pygr/internal/pkgversion"
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

// Catalog tracks recipe repositories cloned under reposRoot and serves
// recipe lookups against them.
type Catalog struct {
	reposRoot string
	execGit   gitExecFunc

	mu    sync.Mutex
	repos []RepoEntry
}

// NewCatalog creates a Catalog rooted at reposRoot. Any repos already
// present on disk from a prior run are not auto-discovered; callers
// repopulate the in-memory list via AddRepo or by loading persisted
// repo-cache entries themselves.
func NewCatalog(reposRoot string) *Catalog {
	return &Catalog{reposRoot: reposRoot, execGit: defaultGitExec}
}

func (c *Catalog) localPath(name string) string {
	return filepath.Join(c.reposRoot, name)
}

// LoadExisting repopulates the in-memory repo list from clones already
// present under reposRoot, recovering each one's remote URL via git.
// A process restart otherwise has no way to know what AddRepo calls
// happened in an earlier invocation, since the repo cache itself is
// the only durable record.
func (c *Catalog) LoadExisting(ctx context.Context) error {
	entries, err := os.ReadDir(c.reposRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.Layout, "RECIPE_REPOS_SCAN", err, "scanning repo cache directory")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	known := map[string]bool{}
	for _, r := range c.repos {
		known[r.Name] = true
	}
	for _, e := range entries {
		if !e.IsDir() || known[e.Name()] {
			continue
		}
		dest := c.localPath(e.Name())
		url := ""
		if out, err := c.execGit(ctx, dest, "remote", "get-url", "origin"); err == nil {
			url = strings.TrimSpace(string(out))
		}
		c.repos = append(c.repos, RepoEntry{Name: e.Name(), URL: url, LocalClonePath: dest})
	}
	return nil
}

// AddRepo clones url into the repo cache under name. Fails with
// RepoExists if the name is already registered, FetchFailed if the
// clone fails.
func (c *Catalog) AddRepo(ctx context.Context, name, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.repos {
		if r.Name == name {
			return errs.New(errs.RepoExists, "RECIPE_REPO_EXISTS", "recipe repo %q is already added", name)
		}
	}
	dest := c.localPath(name)
	if err := os.MkdirAll(c.reposRoot, 0o700); err != nil {
		return errs.Wrap(errs.Layout, "RECIPE_REPOS_DIR", err, "creating repo cache directory")
	}
	if _, err := c.execGit(ctx, "", "clone", "--depth", "1", url, dest); err != nil {
		_ = os.RemoveAll(dest)
		return errs.Wrap(errs.FetchFailed, "RECIPE_REPO_CLONE", err, "cloning recipe repo %q from %q", name, url)
	}
	c.repos = append(c.repos, RepoEntry{Name: name, URL: url, LocalClonePath: dest, LastRefreshTime: time.Now().UTC().Format(time.RFC3339)})
	return nil
}

// RefreshAll pulls the latest commits for every added repo. The
// recipe cache is treated as read-only during a resolve/build plan
// (specification §5); refreshing is always an explicit operation the
// caller takes before planning, never implicit inside Find.
func (c *Catalog) RefreshAll(ctx context.Context) error {
	c.mu.Lock()
	repos := make([]RepoEntry, len(c.repos))
	copy(repos, c.repos)
	c.mu.Unlock()

	var failures []string
	for i, r := range repos {
		if _, err := c.execGit(ctx, r.LocalClonePath, "pull", "--ff-only"); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", r.Name, err))
			continue
		}
		repos[i].LastRefreshTime = time.Now().UTC().Format(time.RFC3339)
	}

	c.mu.Lock()
	for _, r := range repos {
		for i := range c.repos {
			if c.repos[i].Name == r.Name {
				c.repos[i].LastRefreshTime = r.LastRefreshTime
			}
		}
	}
	c.mu.Unlock()

	if len(failures) > 0 {
		return errs.New(errs.FetchFailed, "RECIPE_REPO_REFRESH", "refresh failed for %d repos: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}

// ListRepos returns the added repos in stable insertion order.
func (c *Catalog) ListRepos() []RepoEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RepoEntry, len(c.repos))
	copy(out, c.repos)
	return out
}

// Find scans every added repo for recipes named name, and returns the
// one whose version best satisfies constraint: newest version first,
// ties broken by lexicographically greatest version string, then by
// lexicographically smallest repo name.
func (c *Catalog) Find(name string, constraint pkgversion.Constraint) (Recipe, error) {
	c.mu.Lock()
	repos := make([]RepoEntry, len(c.repos))
	copy(repos, c.repos)
	c.mu.Unlock()

	type candidate struct {
		recipe Recipe
		repo   string
	}
	var candidates []candidate

	for _, repo := range repos {
		entries, err := os.ReadDir(repo.LocalClonePath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
				continue
			}
			path := filepath.Join(repo.LocalClonePath, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			r, err := Parse(data, path)
			if err != nil {
				continue
			}
			if r.Name != name && strings.TrimSuffix(entry.Name(), ".yaml") != name {
				continue
			}
			if r.Name == "" {
				continue
			}
			if !constraint.Matches(r.parsedVersion) {
				continue
			}
			candidates = append(candidates, candidate{recipe: r, repo: repo.Name})
		}
	}

	if len(candidates) == 0 {
		return Recipe{}, errs.New(errs.RepoMissing, "RECIPE_NOT_FOUND", "no recipe named %q satisfies constraint %q", name, constraint.String())
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if cmp := a.recipe.parsedVersion.Compare(b.recipe.parsedVersion); cmp != 0 {
			return cmp > 0
		}
		if a.recipe.Version != b.recipe.Version {
			return a.recipe.Version > b.recipe.Version
		}
		return a.repo < b.repo
	})
	return candidates[0].recipe, nil
}
