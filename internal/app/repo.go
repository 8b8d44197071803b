package app

import (
	"context"

	"pygr/internal/config"
	"pygr/internal/recipe"
)

// RepoAdd clones url as a recipe repo named name and pins it into the
// global config so future invocations reattach it at startup without
// re-cloning.
func (s *Service) RepoAdd(ctx context.Context, name, url string) error {
	if err := s.Catalog.AddRepo(ctx, name, url); err != nil {
		return err
	}
	s.Config.Repos = append(s.Config.Repos, config.RepoConfig{Name: name, URL: url})
	return config.Save(s.Layout.GlobalConfigPath(), s.Config)
}

// RepoList returns every recipe repo currently attached to the
// catalog, in the order they were added.
func (s *Service) RepoList() []recipe.RepoEntry {
	return s.Catalog.ListRepos()
}

// RepoRefresh pulls the latest commits for every attached recipe repo.
// The recipe cache is read-only during a resolve/build plan; refresh
// is always an explicit operation taken before planning.
func (s *Service) RepoRefresh(ctx context.Context) error {
	return s.Catalog.RefreshAll(ctx)
}
