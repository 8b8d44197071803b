// Package store implements the content-addressed object store: every
// built artifact lives in an immutable directory named by its build
// fingerprint, inserted via an atomic rename so concurrent builds of
// the same key never corrupt each other.
package store

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"pygr/internal/errs"
)

// Key is the hex-encoded build fingerprint addressing one artifact.
type Key string

// KeyFromDigest renders a 256-bit digest as a Key.
func KeyFromDigest(digest [32]byte) Key {
	return Key(hex.EncodeToString(digest[:]))
}

// ManifestName is the file every artifact directory carries at its
// root, recording what produced it.
const ManifestName = "manifest"

// Store is the root-level content-addressed directory of artifacts.
type Store struct {
	root string
}

// New returns a Store rooted at root. root must already exist (it is
// created by layout.Resolve).
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.root, string(key))
}

// Has reports whether key is already present in the store.
func (s *Store) Has(key Key) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && info.IsDir()
}

// Insert atomically moves stagingDir into the store at key. If the
// destination already exists the staging copy is discarded and the
// call still succeeds: the store is content-addressed, so a
// concurrent insert of the same key is equivalent content by
// construction.
func (s *Store) Insert(stagingDir string, key Key) error {
	dest := s.path(key)
	if s.Has(key) {
		return os.RemoveAll(stagingDir)
	}
	if err := os.Rename(stagingDir, dest); err != nil {
		if errors.Is(err, os.ErrExist) || s.Has(key) {
			return os.RemoveAll(stagingDir)
		}
		return errs.Wrap(errs.Internal, "STORE_INSERT", err, "inserting artifact %q", key)
	}
	return nil
}

// Manifest parses and returns the manifest recorded at key.
func (s *Store) Manifest(key Key) (ArtifactManifest, error) {
	data, err := os.ReadFile(filepath.Join(s.path(key), ManifestName))
	if err != nil {
		return ArtifactManifest{}, errs.Wrap(errs.Internal, "STORE_MANIFEST_READ", err, "reading manifest for %q", key)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return ArtifactManifest{}, errs.Wrap(errs.Internal, "STORE_MANIFEST_PARSE", err, "parsing manifest for %q", key)
	}
	return m, nil
}

// Enumerate lists every key currently present in the store, for use
// by a compaction pass.
func (s *Store) Enumerate() ([]Key, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "STORE_ENUMERATE", err, "listing store root %q", s.root)
	}
	keys := make([]Key, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, Key(e.Name()))
		}
	}
	return keys, nil
}

// BinPath returns the bin/ directory under an artifact, used by the
// profile generation builder to discover executables to symlink.
func (s *Store) BinPath(key Key) string {
	return filepath.Join(s.path(key), "bin")
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// ArtifactPath returns the on-disk path of the artifact for key,
// whether or not it currently exists.
func (s *Store) ArtifactPath(key Key) string {
	return s.path(key)
}

func (k Key) String() string {
	return string(k)
}
