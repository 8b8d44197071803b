// Package app wires the resolver, fetcher, builder, store, profile,
// declarative state, and binary cache components into the operations
// the CLI front-end drives: install, uninstall, sync, rollback, and
// the rest of the command contract.
package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"pygr/internal/audit"
	"pygr/internal/builder"
	"pygr/internal/cache"
	"pygr/internal/config"
	"pygr/internal/errs"
	"pygr/internal/fetcher"
	"pygr/internal/layout"
	"pygr/internal/metadb"
	"pygr/internal/profile"
	"pygr/internal/recipe"
	"pygr/internal/sandbox"
	"pygr/internal/search"
	"pygr/internal/state"
	"pygr/internal/store"
)

// defaultPrefixTemplate is the one install-layout template pygr's
// builder ever uses; it still participates in the build fingerprint
// as the specification's data model requires, so a future second
// layout stays additive rather than breaking.
const defaultPrefixTemplate = "{{prefix}}"

// Options configures a Service. Every field is optional; zero values
// fall back to environment variables and the persisted config.
type Options struct {
	RootOverride     string
	SandboxOverride  *bool
	CacheURLOverride string
	GitHubToken      string
}

// Service is the fully-wired application core one CLI invocation
// operates against.
type Service struct {
	Layout layout.Layout
	Config config.Config

	Catalog *recipe.Catalog
	Fetcher *fetcher.Fetcher
	Sandbox *sandbox.Runner
	Store   *store.Store
	Builder *builder.Service
	Pool    *builder.Pool
	Gens    *profile.Generations
	State   *state.File
	Cache   *cache.Client // nil when no binary cache is configured
	Search  *search.Client
	Audit   *audit.Logger
	MetaDB  *metadb.DB
}

// New resolves the filesystem layout, loads (or creates) the global
// config, and constructs every component wired to it.
func New(ctx context.Context, opts Options) (*Service, error) {
	l, err := layout.Resolve(opts.RootOverride)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Ensure(l.GlobalConfigPath())
	if err != nil {
		return nil, err
	}

	logger := audit.New(filepath.Join(l.Root, "audit.log"))

	catalog := recipe.NewCatalog(l.Repos)
	if err := catalog.LoadExisting(ctx); err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, r := range catalog.ListRepos() {
		known[r.Name] = true
	}
	for _, r := range cfg.Repos {
		if known[r.Name] {
			continue
		}
		if err := catalog.AddRepo(ctx, r.Name, r.URL); err != nil {
			logger.Log(audit.Event{Operation: "startup", Phase: "repo-add", Status: "error", Code: string(errs.KindOf(err)), Fields: map[string]string{"repo": r.Name}})
		}
	}

	sandboxRunner := resolveSandbox(opts.SandboxOverride, cfg)

	cacheURL := opts.CacheURLOverride
	if cacheURL == "" {
		cacheURL = os.Getenv("PYGR_CACHE_URL")
	}
	if cacheURL == "" && cfg.Cache.Enabled {
		cacheURL = cfg.Cache.BaseURL
	}
	var cacheClient *cache.Client
	if cacheURL != "" {
		cacheClient = cache.New(cacheURL)
	}

	storeSvc := store.New(l.Store)
	fetcherSvc := fetcher.New(l.SourcesRoot())

	buildTimeout, err := time.ParseDuration(cfg.Build.Timeout)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "APP_BUILD_TIMEOUT", err, "parsing build.timeout %q", cfg.Build.Timeout)
	}

	builderSvc := &builder.Service{
		Fetcher:      fetcherSvc,
		Store:        storeSvc,
		Sandbox:      sandboxRunner,
		StagingRoot:  l.StagingRoot(),
		Logger:       logger,
		BuildTimeout: buildTimeout,
	}
	if cacheClient != nil {
		builderSvc.Cache = cacheClient
	}

	pool := builder.NewPool(builderSvc)
	if cfg.Build.MaxParallel > 0 {
		pool.Limit = cfg.Build.MaxParallel
	}

	token := opts.GitHubToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	return &Service{
		Layout:  l,
		Config:  cfg,
		Catalog: catalog,
		Fetcher: fetcherSvc,
		Sandbox: sandboxRunner,
		Store:   storeSvc,
		Builder: builderSvc,
		Pool:    pool,
		Gens:    &profile.Generations{ProfilesRoot: l.Profiles, Layout: l, Store: storeSvc},
		State:   state.New(l.ConfigPath),
		Cache:   cacheClient,
		Search:  search.New(token),
		Audit:   logger,
		MetaDB:  metadb.New(l.DBPath),
	}, nil
}

func resolveSandbox(override *bool, cfg config.Config) *sandbox.Runner {
	enabled := override == nil || *override
	if !enabled {
		return sandbox.New("")
	}
	if cfg.Sandbox.Helper != "" {
		return sandbox.New(cfg.Sandbox.Helper)
	}
	return sandbox.Detect()
}

func (s *Service) sandboxPolicy() sandbox.Policy {
	return sandbox.Policy{NetworkOn: s.Config.Sandbox.NetworkOn}
}
