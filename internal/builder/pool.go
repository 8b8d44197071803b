package builder

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"pygr/internal/store"
)

// Pool drives every package in a resolved plan to completion, running
// builds for unrelated packages concurrently while respecting the
// dependency topology: a package's Build is only submitted once every
// plan entry it depends on has already produced a store key.
type Pool struct {
	Service *Service
	Limit   int
}

// NewPool returns a Pool sized to max(2, NumCPU()/2), matching the
// scheduling model's bounded worker pool.
func NewPool(svc *Service) *Pool {
	limit := runtime.NumCPU() / 2
	if limit < 2 {
		limit = 2
	}
	return &Pool{Service: svc, Limit: limit}
}

// PlanEntry pairs a Plan with the names its DependencyArtifacts should
// be resolved from once those dependencies finish building.
type PlanEntry struct {
	Plan     Plan
	DependsOn []string // names of other entries in the same Run call
}

// Run builds every entry in plans, in dependency order, using up to
// Limit concurrent workers. It returns a map from package name to the
// resulting store key.
func (p *Pool) Run(ctx context.Context, plans []PlanEntry) (map[string]store.Key, error) {
	var mu sync.Mutex
	results := make(map[string]store.Key, len(plans))
	done := make(map[string]chan struct{}, len(plans))
	for _, entry := range plans {
		done[entry.Plan.Name] = make(chan struct{})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Limit)

	for i := range plans {
		entry := plans[i]
		g.Go(func() error {
			for _, dep := range entry.DependsOn {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			plan := entry.Plan
			mu.Lock()
			for _, dep := range entry.DependsOn {
				if key, ok := results[dep]; ok {
					plan.DependencyArtifacts = append(plan.DependencyArtifacts, key)
				}
			}
			mu.Unlock()

			key, err := p.Service.Build(ctx, plan)
			if err == nil {
				mu.Lock()
				results[entry.Plan.Name] = key
				mu.Unlock()
			}
			close(done[entry.Plan.Name])
			return err
		})
	}

	err := g.Wait()
	return results, err
}
