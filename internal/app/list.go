package app

import (
	"pygr/internal/state"
)

// List returns the declarative state entries in file order.
func (s *Service) List() ([]state.Entry, error) {
	entries, _, err := s.State.Read()
	return entries, err
}

// Path returns the bin directory of the current profile generation,
// the value the "path" CLI command prints a shell assignment for.
func (s *Service) Path() string {
	return s.Gens.BinDir()
}
