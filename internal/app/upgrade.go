package app

import (
	"context"

	"pygr/internal/errs"
	"pygr/internal/profile"
	"pygr/internal/state"
)

// isPinnedRef reports whether ref looks like a full git commit SHA
// rather than a moving name (branch, tag, "HEAD", or empty): upgrade
// treats a pinned SHA as a no-op and anything else as eligible for
// refetch, per the chosen policy for the source's ambiguous
// branch-vs-pinned-ref upgrade question.
func isPinnedRef(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for _, r := range ref {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

// Upgrade re-resolves every targeted recipe entry against an open
// constraint (picking up a newer pinned version if one satisfies) and
// refetches every targeted remote-repo entry whose ref is not a pinned
// commit SHA. With no pkgs given, every declarative entry is a target.
// system: entries are never touched; they are the host PM's concern.
func (s *Service) Upgrade(ctx context.Context, pkgs []string) (profile.Generation, error) {
	existingEntries, _, err := s.State.Read()
	if err != nil {
		return profile.Generation{}, err
	}

	targets := map[string]bool{}
	if len(pkgs) == 0 {
		for _, e := range existingEntries {
			targets[e.Name] = true
		}
	} else {
		byName := map[string]bool{}
		for _, e := range existingEntries {
			byName[e.Name] = true
		}
		var missing []string
		for _, raw := range pkgs {
			req, err := parsePackageRequest(raw)
			if err != nil {
				return profile.Generation{}, err
			}
			name := req.name
			if req.remoteRepo {
				name = req.ownerRepo
			}
			if !byName[name] {
				missing = append(missing, name)
				continue
			}
			targets[name] = true
		}
		if len(missing) > 0 {
			return profile.Generation{}, errs.New(errs.RepoMissing, "APP_UPGRADE_NOT_INSTALLED", "not installed: %v", missing)
		}
	}

	updated := append([]state.Entry{}, existingEntries...)
	for i, e := range updated {
		switch e.Kind {
		case state.KindRecipe:
			if !targets[e.Name] {
				continue
			}
			_, pinnedByName, err := s.resolveAndBuildNamed(ctx, []packageRequest{{name: e.Name}})
			if err != nil {
				return profile.Generation{}, err
			}
			if p, ok := pinnedByName[e.Name]; ok {
				updated[i].Version = p.Recipe.Version
			}
		case state.KindRemoteRepo:
			if targets[e.Name] && !isPinnedRef(e.Ref) {
				updated[i].Ref = "HEAD"
			}
		}
	}

	keys, err := s.buildKeysForEntries(ctx, updated)
	if err != nil {
		return profile.Generation{}, err
	}
	snapshot := state.Render(updated)

	gen, err := s.Gens.Publish(dedupKeys(keys), snapshot)
	if err != nil {
		return profile.Generation{}, err
	}
	if err := s.State.Write(updated); err != nil {
		return profile.Generation{}, err
	}
	return gen, nil
}
