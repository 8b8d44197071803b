package fetcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// TreeFingerprint computes a 256-bit digest over a deterministic
// serialization of the tree rooted at root, excluding the ".git"
// metadata directory: for every regular file in sorted relative-path
// order, it hashes "path\0mode\0size\0content"; symlinks contribute
// "path\0L\0target"; directories contribute nothing by themselves.
// The result is stable across clones and repeated checkouts of the
// same ref.
func TreeFingerprint(root string) ([32]byte, error) {
	type entry struct {
		relPath string
		mode    fs.FileMode
		link    bool
		target  string
	}
	var entries []entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entries = append(entries, entry{relPath: rel, link: true, target: target})
			return nil
		}
		entries = append(entries, entry{relPath: rel, mode: info.Mode()})
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })

	h := blake3.New()
	for _, e := range entries {
		if e.link {
			fmt.Fprintf(h, "%s\x00L\x00%s", e.relPath, e.target)
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.relPath))
		if err != nil {
			return [32]byte{}, err
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", e.relPath, e.mode.Perm(), len(data))
		h.Write(data)
	}

	var out [32]byte
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out, nil
}
