package app

import (
	"context"

	"pygr/internal/errs"
	"pygr/internal/profile"
	"pygr/internal/state"
)

// Uninstall drops the named declarative entries and republishes a
// generation built from what remains. Unlike Install, the resulting
// key set is not a union with the current generation's keys: it is
// recomputed from scratch from the surviving entries, so a package
// that was only pulled in as a dependency of a since-removed request
// is free to disappear from the next generation too.
func (s *Service) Uninstall(ctx context.Context, refs []string) (profile.Generation, error) {
	if len(refs) == 0 {
		return profile.Generation{}, errs.New(errs.RecipeMalformed, "APP_UNINSTALL_EMPTY", "uninstall requires at least one package reference")
	}

	lookupNames := make([]string, 0, len(refs))
	for _, raw := range refs {
		req, err := parsePackageRequest(raw)
		if err != nil {
			return profile.Generation{}, err
		}
		if req.remoteRepo {
			lookupNames = append(lookupNames, req.ownerRepo)
		} else {
			lookupNames = append(lookupNames, req.name)
		}
	}

	existingEntries, _, err := s.State.Read()
	if err != nil {
		return profile.Generation{}, err
	}

	remove := map[string]bool{}
	for _, name := range lookupNames {
		remove[name] = true
	}
	var remaining []state.Entry
	var missing []string
	for _, name := range lookupNames {
		found := false
		for _, e := range existingEntries {
			if e.Name == name {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return profile.Generation{}, errs.New(errs.RepoMissing, "APP_UNINSTALL_NOT_INSTALLED", "not installed: %v", missing)
	}
	for _, e := range existingEntries {
		if remove[e.Name] {
			continue
		}
		remaining = append(remaining, e)
	}

	keys, err := s.buildKeysForEntries(ctx, remaining)
	if err != nil {
		return profile.Generation{}, err
	}
	snapshot := state.Render(remaining)

	gen, err := s.Gens.Publish(dedupKeys(keys), snapshot)
	if err != nil {
		return profile.Generation{}, err
	}
	if err := s.State.Write(remaining); err != nil {
		return profile.Generation{}, err
	}
	return gen, nil
}
