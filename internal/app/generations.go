package app

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"pygr/internal/errs"
	"pygr/internal/profile"
)

// Generations lists every gen-<N> directory under the profiles root,
// oldest first, for the "generations" CLI command.
func (s *Service) Generations() ([]int, error) {
	entries, err := os.ReadDir(s.Layout.Profiles)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "APP_GENERATIONS_LIST", err, "listing profiles root %q", s.Layout.Profiles)
	}
	nums := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "gen-") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "gen-"))
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

// CurrentGeneration returns the generation "current" points to.
func (s *Service) CurrentGeneration() (profile.Generation, error) {
	return s.Gens.Current()
}

// Rollback swaps current and previous, failing with
// errs.NoPreviousGeneration if there is nothing to roll back to.
func (s *Service) Rollback() (profile.Generation, error) {
	return s.Gens.Rollback()
}
