package app

import (
	"context"
	"path"

	"pygr/internal/builder"
	"pygr/internal/errs"
	"pygr/internal/pkgversion"
	"pygr/internal/profile"
	"pygr/internal/recipe"
	"pygr/internal/resolver"
	"pygr/internal/state"
	"pygr/internal/store"
	"pygr/internal/syspm"
)

// Install resolves, builds, and publishes a new generation containing
// every currently-installed package plus the requested ones. fromGithub
// restricts refs to the OWNER/REPO[@REF] form, skipping the system-PM
// and recipe routes entirely.
func (s *Service) Install(ctx context.Context, refs []string, fromGithub bool) (profile.Generation, error) {
	if len(refs) == 0 {
		return profile.Generation{}, errs.New(errs.RecipeMalformed, "APP_INSTALL_EMPTY", "install requires at least one package reference")
	}

	var remoteReqs, namedReqs []packageRequest
	for _, raw := range refs {
		req, err := parsePackageRequest(raw)
		if err != nil {
			return profile.Generation{}, err
		}
		if req.remoteRepo {
			remoteReqs = append(remoteReqs, req)
		} else {
			namedReqs = append(namedReqs, req)
		}
	}
	if fromGithub && len(namedReqs) > 0 {
		return profile.Generation{}, errs.New(errs.RecipeMalformed, "APP_FROM_GITHUB_NAME", "--from-github requires OWNER/REPO package references")
	}

	existingKeys, err := s.currentKeys()
	if err != nil {
		return profile.Generation{}, err
	}
	newKeys := []store.Key{}
	var additions []state.Entry

	for _, req := range remoteReqs {
		key, entry, err := s.installRemoteRepo(ctx, req)
		if err != nil {
			return profile.Generation{}, err
		}
		newKeys = append(newKeys, key)
		additions = append(additions, entry)
	}

	if !fromGithub && len(namedReqs) > 0 {
		keys, entries, err := s.installNamed(ctx, namedReqs)
		if err != nil {
			return profile.Generation{}, err
		}
		newKeys = append(newKeys, keys...)
		additions = append(additions, entries...)
	}

	return s.publishWithAdditions(existingKeys, newKeys, additions)
}

func (s *Service) installRemoteRepo(ctx context.Context, req packageRequest) (store.Key, state.Entry, error) {
	ref := req.ref
	if ref == "" {
		ref = "HEAD"
	}
	plan := builder.Plan{
		Name:           path.Base(req.ownerRepo),
		Version:        ref,
		RepoURL:        githubCloneURL(req.ownerRepo),
		Ref:            ref,
		PrefixTemplate: defaultPrefixTemplate,
		SandboxPolicy:  s.sandboxPolicy(),
	}
	key, err := s.Builder.Build(ctx, plan)
	if err != nil {
		return "", state.Entry{}, err
	}
	return key, state.Entry{Kind: state.KindRemoteRepo, Name: req.ownerRepo, Ref: req.ref}, nil
}

// installNamed splits named requests between the system-PM fast path
// and the resolver+builder route, returning every store key that
// should appear in the new generation (including transitive
// dependencies, which are not themselves written to the declarative
// state) and the state entries for the top-level requests.
func (s *Service) installNamed(ctx context.Context, reqs []packageRequest) ([]store.Key, []state.Entry, error) {
	pm := syspm.Detect()

	var toResolve []packageRequest
	var entries []state.Entry
	for _, req := range reqs {
		if pm != "" && syspm.Available(ctx, pm, req.name) {
			entries = append(entries, state.Entry{Kind: state.KindSystem, PM: pm, Name: req.name})
			continue
		}
		toResolve = append(toResolve, req)
	}
	if len(toResolve) == 0 {
		return nil, entries, nil
	}

	keys, pinnedByName, err := s.resolveAndBuildNamed(ctx, toResolve)
	if err != nil {
		return nil, nil, err
	}
	for _, req := range toResolve {
		p, ok := pinnedByName[req.name]
		if !ok {
			continue
		}
		entries = append(entries, state.Entry{Kind: state.KindRecipe, Name: p.Name, Version: p.Recipe.Version})
	}
	return keys, entries, nil
}

// resolveAndBuildNamed runs the resolver over reqs and builds every
// pinned package (top-level and transitive) through the worker pool,
// always via the recipe route: callers that need the system-PM fast
// path check it themselves before calling this.
func (s *Service) resolveAndBuildNamed(ctx context.Context, reqs []packageRequest) ([]store.Key, map[string]resolver.Pinned, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}
	requests := make([]resolver.Request, 0, len(reqs))
	for _, req := range reqs {
		constraint := pkgversion.Any
		if req.constraint != "" {
			c, err := pkgversion.ParseConstraint(req.constraint)
			if err != nil {
				return nil, nil, errs.Wrap(errs.RecipeMalformed, "APP_BAD_CONSTRAINT", err, "parsing constraint %q for %q", req.constraint, req.name)
			}
			constraint = c
		}
		requests = append(requests, resolver.Request{Name: req.name, Constraint: constraint})
	}

	lister := resolver.NewDefaultCandidateLister(s.Catalog, 8)
	pinned, err := resolver.Resolve(lister, requests)
	if err != nil {
		return nil, nil, err
	}

	pinnedByName := make(map[string]resolver.Pinned, len(pinned))
	planEntries := make([]builder.PlanEntry, 0, len(pinned))
	for _, p := range pinned {
		pinnedByName[p.Name] = p
		plan := recipePlan(p.Recipe)
		plan.SandboxPolicy = s.sandboxPolicy()
		planEntries = append(planEntries, builder.PlanEntry{Plan: plan, DependsOn: p.Dependencies})
	}

	results, err := s.Pool.Run(ctx, planEntries)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]store.Key, 0, len(results))
	for _, key := range results {
		keys = append(keys, key)
	}
	return keys, pinnedByName, nil
}

func recipePlan(r recipe.Recipe) builder.Plan {
	return builder.Plan{
		Name:            r.Name,
		Version:         r.Version,
		RepoURL:         githubCloneURL(r.Source.Repo),
		Ref:             r.Source.Ref,
		BuildCommands:   r.Build,
		InstallCommands: r.Install,
		PrefixTemplate:  defaultPrefixTemplate,
	}
}

// currentKeys returns the artifact keys of the current generation, or
// an empty slice on a fresh root with no generation yet.
func (s *Service) currentKeys() ([]store.Key, error) {
	current, err := s.Gens.Current()
	if err != nil {
		if errs.Is(err, errs.NoPreviousGeneration) {
			return nil, nil
		}
		return nil, err
	}
	return current.Keys, nil
}

// publishWithAdditions merges additions into the declarative state
// (upserting by name, preserving the position of an existing entry),
// renders the would-be snapshot, publishes a generation over the
// union of existingKeys and newKeys, and only then commits the state
// file — so a failed publish leaves the state untouched.
func (s *Service) publishWithAdditions(existingKeys, newKeys []store.Key, additions []state.Entry) (profile.Generation, error) {
	existingEntries, _, err := s.State.Read()
	if err != nil {
		return profile.Generation{}, err
	}
	updated := upsertEntries(existingEntries, additions)
	snapshot := state.Render(updated)

	finalKeys := dedupKeys(append(append([]store.Key{}, existingKeys...), newKeys...))

	gen, err := s.Gens.Publish(finalKeys, snapshot)
	if err != nil {
		return profile.Generation{}, err
	}
	if err := s.State.Write(updated); err != nil {
		return profile.Generation{}, err
	}
	return gen, nil
}

func upsertEntries(existing []state.Entry, additions []state.Entry) []state.Entry {
	byName := map[string]int{}
	out := append([]state.Entry{}, existing...)
	for i, e := range out {
		byName[e.Name] = i
	}
	for _, add := range additions {
		if idx, ok := byName[add.Name]; ok {
			out[idx] = add
			continue
		}
		byName[add.Name] = len(out)
		out = append(out, add)
	}
	return out
}

func dedupKeys(keys []store.Key) []store.Key {
	seen := map[store.Key]bool{}
	out := make([]store.Key, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// buildKeysForEntries rebuilds (or looks up, if already in the store)
// the artifact key for every non-system entry, for callers that need
// to republish a generation from a declarative state snapshot rather
// than from a fresh set of CLI requests: uninstall (after removing
// entries) and upgrade.
func (s *Service) buildKeysForEntries(ctx context.Context, entries []state.Entry) ([]store.Key, error) {
	var keys []store.Key
	var recipeReqs []packageRequest
	for _, e := range entries {
		switch e.Kind {
		case state.KindSystem:
			continue
		case state.KindRemoteRepo:
			key, _, err := s.installRemoteRepo(ctx, packageRequest{remoteRepo: true, ownerRepo: e.Name, ref: e.Ref})
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		case state.KindRecipe:
			recipeReqs = append(recipeReqs, packageRequest{name: e.Name, constraint: "=" + e.Version})
		}
	}
	if len(recipeReqs) > 0 {
		recipeKeys, _, err := s.resolveAndBuildNamed(ctx, recipeReqs)
		if err != nil {
			return nil, err
		}
		keys = append(keys, recipeKeys...)
	}
	return keys, nil
}
