package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pygr/internal/audit"
	"pygr/internal/buildtype"
	"pygr/internal/errs"
	"pygr/internal/sandbox"
	"pygr/internal/store"
)

// sourceFetcher is the subset of *fetcher.Fetcher the builder needs;
// expressed as an interface so tests can substitute a fake.
type sourceFetcher interface {
	Fetch(ctx context.Context, repoURL, ref string) (string, [32]byte, error)
}

// binaryCache is the subset of *cache.Client the builder needs.
type binaryCache interface {
	Lookup(ctx context.Context, key store.Key) (bool, error)
	DownloadAndExtract(ctx context.Context, key store.Key, destStaging string) error
}

// Service orchestrates fetch -> build -> install-to-store for one
// pinned package.
type Service struct {
	Fetcher     sourceFetcher
	Store       *store.Store
	Cache       binaryCache // may be nil: no binary cache configured
	Sandbox     *sandbox.Runner
	StagingRoot string
	Logger      *audit.Logger
	BuildTimeout time.Duration
}

// Build runs the nine-step pipeline described by the builder
// component: fetch, detect, fingerprint, fast-path, stage, link deps,
// run commands, write manifest, and atomically install. Repeated
// calls with identical inputs are no-ops after the fast-path check.
func (s *Service) Build(ctx context.Context, plan Plan) (store.Key, error) {
	s.logEvent("build", "start", "ok", "", plan.Name, nil)

	sourcePath, treeFingerprint, err := s.Fetcher.Fetch(ctx, plan.RepoURL, plan.Ref)
	if err != nil {
		s.logEvent("build", "fetch", "error", string(errs.KindOf(err)), plan.Name, nil)
		return "", err
	}

	descriptor, err := s.resolveDescriptor(plan, sourcePath)
	if err != nil {
		s.logEvent("build", "detect", "error", string(errs.KindOf(err)), plan.Name, nil)
		return "", err
	}

	key := buildFingerprint(treeFingerprint, descriptor, plan.DependencyArtifacts, plan.PrefixTemplate, plan.SandboxPolicy)

	if s.Store.Has(key) {
		s.logEvent("build", "fast-path", "ok", "", plan.Name, map[string]string{"key": string(key), "reason": "store-hit"})
		return key, nil
	}

	if s.Cache != nil {
		hit, err := s.Cache.Lookup(ctx, key)
		if err == nil && hit {
			staging, err := s.newStagingDir()
			if err == nil {
				if err := s.Cache.DownloadAndExtract(ctx, key, staging); err == nil {
					if err := s.Store.Insert(staging, key); err == nil {
						s.logEvent("build", "fast-path", "ok", "", plan.Name, map[string]string{"key": string(key), "reason": "cache-hit"})
						return key, nil
					}
				}
				_ = os.RemoveAll(staging)
			}
		}
	}

	staging, err := s.newStagingDir()
	if err != nil {
		return "", errs.Wrap(errs.Internal, "BUILD_STAGING", err, "creating staging directory")
	}
	defer os.RemoveAll(staging)

	prefix := filepath.Join(staging, "prefix")
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return "", errs.Wrap(errs.Internal, "BUILD_PREFIX_MKDIR", err, "creating prefix directory")
	}

	env := s.buildEnv(plan, prefix)

	if err := s.runCommands(ctx, descriptor, plan, sourcePath, prefix, env); err != nil {
		s.logEvent("build", "run", "error", string(errs.KindOf(err)), plan.Name, nil)
		return "", err
	}

	manifest := store.ArtifactManifest{
		Name:                  plan.Name,
		Version:               plan.Version,
		DependencyKeys:        plan.DependencyArtifacts,
		FetchedRef:            plan.Ref,
		SourceTreeFingerprint: fmt.Sprintf("%x", treeFingerprint),
		BuildFingerprint:      key,
		BuildTime:             time.Now(),
	}
	if err := os.WriteFile(filepath.Join(prefix, store.ManifestName), manifest.Render(), 0o644); err != nil {
		return "", errs.Wrap(errs.Internal, "BUILD_MANIFEST_WRITE", err, "writing manifest")
	}

	if err := s.Store.Insert(prefix, key); err != nil {
		return "", err
	}
	s.logEvent("build", "commit", "ok", "", plan.Name, map[string]string{"key": string(key)})
	return key, nil
}

func (s *Service) resolveDescriptor(plan Plan, sourcePath string) (buildtype.Descriptor, error) {
	if len(plan.BuildCommands) > 0 || len(plan.InstallCommands) > 0 {
		return buildtype.Descriptor{System: "recipe", Build: plan.BuildCommands, Install: plan.InstallCommands}, nil
	}
	d := buildtype.Detect(sourcePath)
	if d.NoBuildSystem() {
		return d, errs.New(errs.NoBuildSystem, "BUILD_NO_SYSTEM", "no build system detected for %q; consider writing a recipe", plan.Name)
	}
	return d, nil
}

func (s *Service) newStagingDir() (string, error) {
	if err := os.MkdirAll(s.StagingRoot, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(s.StagingRoot, "build-*")
}

// buildEnv exposes dependency artifacts on a synthesized include/lib
// path so build commands can find already-built dependencies.
func (s *Service) buildEnv(plan Plan, prefix string) []string {
	var include, lib, path []string
	for _, dep := range plan.DependencyArtifacts {
		artifactPath := s.Store.ArtifactPath(dep)
		include = append(include, filepath.Join(artifactPath, "include"))
		lib = append(lib, filepath.Join(artifactPath, "lib"))
		path = append(path, filepath.Join(artifactPath, "bin"))
	}
	env := os.Environ()
	env = append(env,
		"PYGR_PREFIX="+prefix,
		"CPATH="+strings.Join(include, ":"),
		"LIBRARY_PATH="+strings.Join(lib, ":"),
		"PKG_CONFIG_PATH="+strings.Join(libPkgConfig(lib), ":"),
		"PATH="+strings.Join(path, ":")+":"+os.Getenv("PATH"),
	)
	return env
}

func libPkgConfig(libDirs []string) []string {
	out := make([]string, len(libDirs))
	for i, d := range libDirs {
		out[i] = filepath.Join(d, "pkgconfig")
	}
	return out
}

func (s *Service) runCommands(ctx context.Context, descriptor buildtype.Descriptor, plan Plan, sourcePath, prefix string, env []string) error {
	build, install := descriptor.Build, descriptor.Install
	if len(plan.BuildCommands) > 0 || len(plan.InstallCommands) > 0 {
		build, install = plan.BuildCommands, plan.InstallCommands
	}
	for _, cmd := range append(append([]string{}, build...), install...) {
		expanded := expandPrefix(cmd, prefix)
		res, err := s.Sandbox.Run(ctx, sandbox.Spec{
			Command: []string{"sh", "-c", expanded},
			Dir:     sourcePath,
			Env:     env,
			Timeout: s.BuildTimeout,
			Policy:  plan.SandboxPolicy,
		})
		if err != nil {
			return errs.Wrap(errs.KindOf(err), "BUILD_COMMAND", err, "running %q (stdout=%q stderr=%q)", expanded, res.Stdout, res.Stderr)
		}
	}
	return nil
}

func expandPrefix(cmd, prefix string) string {
	return strings.ReplaceAll(cmd, "{{prefix}}", prefix)
}

func (s *Service) logEvent(operation, phase, status, code, name string, fields map[string]string) {
	if fields == nil {
		fields = map[string]string{}
	}
	fields["package"] = name
	s.Logger.Log(audit.Event{Operation: operation, Phase: phase, Status: status, Code: code, Fields: fields})
}
