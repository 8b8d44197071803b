package app

import (
	"os"
	"path/filepath"
	"time"

	"pygr/internal/errs"
	"pygr/internal/fsutil"
)

// Backup snapshots the current generation's manifest and the
// declarative state file into backups/<timestamp>[-label]/, so a
// later inspection or restore has a point-in-time copy independent of
// generation garbage collection. It returns the backup directory.
func (s *Service) Backup(label string) (string, error) {
	current, err := s.Gens.Current()
	if err != nil {
		return "", err
	}

	name := time.Now().UTC().Format("20060102T150405Z")
	if label != "" {
		name += "-" + label
	}
	dir := filepath.Join(s.Layout.Backups, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.Internal, "APP_BACKUP_MKDIR", err, "creating backup directory %q", dir)
	}

	manifest, err := os.ReadFile(filepath.Join(current.Dir, "manifest"))
	if err != nil {
		return "", errs.Wrap(errs.Internal, "APP_BACKUP_MANIFEST", err, "reading generation manifest")
	}
	if err := fsutil.AtomicWrite(filepath.Join(dir, "manifest"), manifest, 0o644); err != nil {
		return "", errs.Wrap(errs.Internal, "APP_BACKUP_WRITE", err, "writing backup manifest")
	}

	state, err := os.ReadFile(s.Layout.ConfigPath)
	if err != nil && !os.IsNotExist(err) {
		return "", errs.Wrap(errs.Internal, "APP_BACKUP_STATE", err, "reading declarative state")
	}
	if err := fsutil.AtomicWrite(filepath.Join(dir, "packages.conf"), state, 0o644); err != nil {
		return "", errs.Wrap(errs.Internal, "APP_BACKUP_STATE_WRITE", err, "writing backup state")
	}

	return dir, nil
}
