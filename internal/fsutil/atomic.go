// Package fsutil provides the small filesystem primitive pygr's
// declarative state file, exports, and backups all rely on to avoid
// leaving a half-written file behind if the process dies mid-write.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to path by first writing a sibling temp
// file in the same directory, then renaming it into place, so a
// reader never observes a partial write. The temp file gets a unique
// suffix rather than a fixed ".tmp": two writers racing on the same
// fixed temp name would stomp each other's in-flight write before
// either got to rename.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if err := writeAndClose(tmp, data, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	return nil
}

func writeAndClose(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	return f.Close()
}
