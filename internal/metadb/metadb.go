// Package metadb implements the small key-value metadata database the
// filesystem layout reserves a single file for: operational facts
// that are neither store artifacts, profile state, nor the
// declarative state file, such as when the last sync or apply
// completed.
package metadb

import (
	"bufio"
	"bytes"
	"os"
	"sort"
	"strings"
	"sync"

	"pygr/internal/errs"
	"pygr/internal/fsutil"
)

// DB is a flat key-value store persisted as "key=value" lines, one
// per entry, sorted by key for a stable on-disk diff.
type DB struct {
	path string
	mu   sync.Mutex
}

// New returns a DB backed by path. The file is created on first Set.
func New(path string) *DB {
	return &DB{path: path}
}

func (d *DB) readAll() (map[string]string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errs.Wrap(errs.Internal, "METADB_READ", err, "reading metadata database %q", d.path)
	}
	out := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out, scanner.Err()
}

func (d *DB) writeAll(entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(entries[k])
		b.WriteByte('\n')
	}
	if err := fsutil.AtomicWrite(d.path, []byte(b.String()), 0o600); err != nil {
		return errs.Wrap(errs.Internal, "METADB_WRITE", err, "writing metadata database %q", d.path)
	}
	return nil
}

// Get returns the value stored at key, and whether it was present.
func (d *DB) Get(key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := d.readAll()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Set stores value at key, creating or rewriting the database file.
func (d *DB) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := d.readAll()
	if err != nil {
		return err
	}
	entries[key] = value
	return d.writeAll(entries)
}

// Delete removes key if present; deleting an absent key is a no-op.
func (d *DB) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := d.readAll()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return d.writeAll(entries)
}

// All returns a snapshot of every key-value pair.
func (d *DB) All() (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readAll()
}
