package app

import (
	"os"
	"path/filepath"

	"pygr/internal/errs"
)

// Status summarizes one root's current state for the "status" CLI
// command.
type Status struct {
	Root               string
	CurrentGeneration  int
	HasCurrent         bool
	HasPrevious        bool
	DeclaredPackages   int
	StoreArtifactCount int
}

func (s *Service) Status() (Status, error) {
	st := Status{Root: s.Layout.Root}

	current, err := s.Gens.Current()
	switch {
	case err == nil:
		st.HasCurrent = true
		st.CurrentGeneration = current.Number
	case errs.Is(err, errs.NoPreviousGeneration):
	default:
		return Status{}, err
	}

	if _, err := os.Lstat(filepath.Join(s.Layout.Profiles, "previous")); err == nil {
		st.HasPrevious = true
	}

	entries, _, err := s.State.Read()
	if err != nil {
		return Status{}, err
	}
	st.DeclaredPackages = len(entries)

	keys, err := s.Store.Enumerate()
	if err != nil {
		return Status{}, err
	}
	st.StoreArtifactCount = len(keys)

	return st, nil
}
