package app

import (
	"context"
	"time"

	"pygr/internal/profile"
	"pygr/internal/state"
	"pygr/internal/store"
)

// stateInstaller adapts Service onto state.Installer, accumulating the
// store keys each declarative entry resolves to as it builds them, so
// Apply can publish a generation from exactly what it just built
// without a second redundant pass over the entries.
type stateInstaller struct {
	ctx  context.Context
	svc  *Service
	keys []store.Key
}

func (a *stateInstaller) Install(e state.Entry) error {
	switch e.Kind {
	case state.KindSystem:
		return nil
	case state.KindRemoteRepo:
		key, _, err := a.svc.installRemoteRepo(a.ctx, packageRequest{remoteRepo: true, ownerRepo: e.Name, ref: e.Ref})
		if err != nil {
			return err
		}
		a.keys = append(a.keys, key)
		return nil
	case state.KindRecipe:
		keys, _, err := a.svc.resolveAndBuildNamed(a.ctx, []packageRequest{{name: e.Name, constraint: "=" + e.Version}})
		if err != nil {
			return err
		}
		a.keys = append(a.keys, keys...)
		return nil
	default:
		return nil
	}
}

// Apply reads the declarative state file and installs every entry,
// in file order, then publishes a generation over everything it just
// built plus whatever the current generation already had.
func (s *Service) Apply(ctx context.Context) (profile.Generation, error) {
	existingKeys, err := s.currentKeys()
	if err != nil {
		return profile.Generation{}, err
	}

	inst := &stateInstaller{ctx: ctx, svc: s}
	if err := s.State.Apply(inst); err != nil {
		return profile.Generation{}, err
	}

	entries, _, err := s.State.Read()
	if err != nil {
		return profile.Generation{}, err
	}
	snapshot := state.Render(entries)
	finalKeys := dedupKeys(append(append([]store.Key{}, existingKeys...), inst.keys...))

	gen, err := s.Gens.Publish(finalKeys, snapshot)
	if err != nil {
		return profile.Generation{}, err
	}
	if err := s.State.Write(entries); err != nil {
		return profile.Generation{}, err
	}
	_ = s.MetaDB.Set("last_apply", time.Now().UTC().Format(time.RFC3339))
	return gen, nil
}
