// Package profile builds and switches the symlink-based profile
// generations that expose installed artifacts to the user, and
// supports rolling back to the previous generation.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pygr/internal/errs"
	"pygr/internal/layout"
	"pygr/internal/store"
)

// Generation describes one published profile generation.
type Generation struct {
	Number int
	Dir    string
	Keys   []store.Key
}

// Generations manages the profiles directory: gen-<N> directories,
// and the current/previous symlinks into them.
type Generations struct {
	ProfilesRoot string
	Layout       layout.Layout
	Store        *store.Store
}

func (g *Generations) genDir(n int) string {
	return filepath.Join(g.ProfilesRoot, fmt.Sprintf("gen-%d", n))
}

func (g *Generations) currentLink() string  { return filepath.Join(g.ProfilesRoot, "current") }
func (g *Generations) previousLink() string { return filepath.Join(g.ProfilesRoot, "previous") }

// nextGenerationNumber scans the profiles root for existing gen-<N>
// directories and returns one greater than the maximum found, or 1 if
// none exist.
func (g *Generations) nextGenerationNumber() (int, error) {
	entries, err := os.ReadDir(g.ProfilesRoot)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "gen-") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "gen-"))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Publish produces the next generation from keys, populating gen-<N>/bin
// with symlinks to every executable each artifact advertises, and
// atomically retargets current (and previous, to the prior current).
// The whole allocate -> create -> swap sequence runs under the
// per-root filesystem lock.
func (g *Generations) Publish(keys []store.Key, stateSnapshot []byte) (Generation, error) {
	lock, err := layout.Acquire(g.Layout)
	if err != nil {
		return Generation{}, err
	}
	defer lock.Release()

	n, err := g.nextGenerationNumber()
	if err != nil {
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_GEN_NUMBER", err, "allocating generation number")
	}
	dir := g.genDir(n)
	binDir := filepath.Join(dir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_GEN_MKDIR", err, "creating generation directory")
	}

	var overlaps []string
	claimed := map[string]store.Key{}
	for _, key := range keys {
		entries, err := os.ReadDir(g.Store.BinPath(key))
		if err != nil {
			continue // artifact has no bin/ directory; nothing to link
		}
		for _, e := range entries {
			if prior, ok := claimed[e.Name()]; ok {
				overlaps = append(overlaps, fmt.Sprintf("%s: %s overrides %s", e.Name(), key, prior))
			}
			linkPath := filepath.Join(binDir, e.Name())
			_ = os.Remove(linkPath)
			target := filepath.Join(g.Store.BinPath(key), e.Name())
			if err := os.Symlink(target, linkPath); err != nil {
				return Generation{}, errs.Wrap(errs.Internal, "PROFILE_GEN_SYMLINK", err, "linking %q", e.Name())
			}
			claimed[e.Name()] = key
		}
	}

	if len(overlaps) > 0 {
		logPath := filepath.Join(dir, "log")
		content := "Overlap: " + strings.Join(overlaps, "\n") + "\n"
		if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
			return Generation{}, errs.Wrap(errs.Internal, "PROFILE_GEN_LOG", err, "writing generation log")
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "manifest"), renderManifest(keys, stateSnapshot), 0o644); err != nil {
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_GEN_MANIFEST", err, "writing generation manifest")
	}

	if err := g.retarget(dir); err != nil {
		return Generation{}, err
	}

	return Generation{Number: n, Dir: dir, Keys: keys}, nil
}

// retarget atomically points current at dir, moving the prior current
// target to previous first.
func (g *Generations) retarget(dir string) error {
	if priorTarget, err := os.Readlink(g.currentLink()); err == nil {
		if err := swapSymlink(g.previousLink(), priorTarget); err != nil {
			return errs.Wrap(errs.Internal, "PROFILE_PREVIOUS_RETARGET", err, "retargeting previous")
		}
	}
	if err := swapSymlink(g.currentLink(), dir); err != nil {
		return errs.Wrap(errs.Internal, "PROFILE_CURRENT_RETARGET", err, "retargeting current")
	}
	return nil
}

// swapSymlink atomically points link at target via a tmp symlink +
// rename, so a reader never observes a missing link mid-swap.
func swapSymlink(link, target string) error {
	tmp := link + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, link)
}

// Rollback swaps current and previous. It fails with
// NoPreviousGeneration if there is no previous generation to swap to.
func (g *Generations) Rollback() (Generation, error) {
	lock, err := layout.Acquire(g.Layout)
	if err != nil {
		return Generation{}, err
	}
	defer lock.Release()

	prevTarget, err := os.Readlink(g.previousLink())
	if err != nil {
		return Generation{}, errs.New(errs.NoPreviousGeneration, "PROFILE_NO_PREVIOUS", "no previous generation to roll back to")
	}
	curTarget, err := os.Readlink(g.currentLink())
	if err != nil {
		curTarget = ""
	}

	if err := swapSymlink(g.currentLink(), prevTarget); err != nil {
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_ROLLBACK_CURRENT", err, "retargeting current")
	}
	if curTarget != "" {
		if err := swapSymlink(g.previousLink(), curTarget); err != nil {
			return Generation{}, errs.Wrap(errs.Internal, "PROFILE_ROLLBACK_PREVIOUS", err, "retargeting previous")
		}
	}

	n, err := generationNumberFromDir(prevTarget)
	if err != nil {
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_ROLLBACK_PARSE", err, "parsing generation number")
	}
	keys, _ := readManifestKeys(prevTarget)
	return Generation{Number: n, Dir: prevTarget, Keys: keys}, nil
}

// Current returns the generation current points to, or
// NoPreviousGeneration if no generation has ever been published (the
// "current" symlink does not exist yet).
func (g *Generations) Current() (Generation, error) {
	target, err := os.Readlink(g.currentLink())
	if err != nil {
		if os.IsNotExist(err) {
			return Generation{}, errs.New(errs.NoPreviousGeneration, "PROFILE_NO_CURRENT", "no generation has been published yet")
		}
		return Generation{}, errs.Wrap(errs.Internal, "PROFILE_CURRENT_READ", err, "reading current symlink")
	}
	n, err := generationNumberFromDir(target)
	if err != nil {
		return Generation{}, err
	}
	keys, err := readManifestKeys(target)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Number: n, Dir: target, Keys: keys}, nil
}

// readManifestKeys parses the "artifact-key: ..." lines a generation
// manifest carries at its head, stopping at the "---" separator that
// precedes the declarative-state snapshot.
func readManifestKeys(genDir string) ([]store.Key, error) {
	data, err := os.ReadFile(filepath.Join(genDir, "manifest"))
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "PROFILE_MANIFEST_READ", err, "reading generation manifest %q", genDir)
	}
	var keys []store.Key
	for _, line := range strings.Split(string(data), "\n") {
		if line == "---" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "artifact-key: "); ok {
			keys = append(keys, store.Key(rest))
		}
	}
	return keys, nil
}

func generationNumberFromDir(dir string) (int, error) {
	base := filepath.Base(dir)
	n, err := strconv.Atoi(strings.TrimPrefix(base, "gen-"))
	if err != nil {
		return 0, fmt.Errorf("profile: malformed generation directory %q", base)
	}
	return n, nil
}

func renderManifest(keys []store.Key, stateSnapshot []byte) []byte {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString("artifact-key: " + string(k) + "\n")
	}
	b.WriteString("---\n")
	b.Write(stateSnapshot)
	return []byte(b.String())
}

// BinDir returns the bin directory of the current generation, the
// value the "path" CLI command advertises.
func (g *Generations) BinDir() string {
	return filepath.Join(g.currentLink(), "bin")
}
