package app

import (
	"time"

	"pygr/internal/state"
)

// Sync rewrites the declarative state file to reflect exactly what
// the current profile generation's manifest says is installed. The
// state file's own SyncFromCurrent already preserves system:
// entries verbatim, since packages satisfied by the host's PM live
// outside the store and so never appear in any manifest.
func (s *Service) Sync() error {
	current, err := s.Gens.Current()
	if err != nil {
		return err
	}
	artifacts := make([]state.ManifestArtifact, 0, len(current.Keys))
	for _, key := range current.Keys {
		m, err := s.Store.Manifest(key)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, state.ManifestArtifact{Name: m.Name, Version: m.Version})
	}
	if err := s.State.SyncFromCurrent(artifacts); err != nil {
		return err
	}
	_ = s.MetaDB.Set("last_sync", time.Now().UTC().Format(time.RFC3339))
	return nil
}
