// Package resolver turns a set of top-level package requests into a
// topologically ordered, fully pinned build plan by walking the
// transitive dependency graph with deterministic backtracking.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"pygr/internal/errs"
	"pygr/internal/pkgversion"
	"pygr/internal/recipe"
)

// Request is one top-level or transitive dependency request.
type Request struct {
	Name       string
	Constraint pkgversion.Constraint
}

// Pinned is one entry in the resolved plan: a name pinned to a
// specific recipe version, plus the names of its direct dependencies
// (for building the dependency-first build order).
type Pinned struct {
	Name         string
	Recipe       recipe.Recipe
	Dependencies []string
}

// Catalog is the subset of *recipe.Catalog the resolver needs.
type Catalog interface {
	Find(name string, constraint pkgversion.Constraint) (recipe.Recipe, error)
}

// CandidateLister returns every recipe version for name that could
// possibly be selected, newest first, so the resolver can try the
// next one on backtrack. *recipe.Catalog does not expose this
// directly (Find already picks the winner), so callers configure a
// CandidateLister alongside the Catalog; the default CandidateLister
// below adapts a Catalog that can only report its single best match
// per constraint by repeatedly excluding previous picks.
type CandidateLister interface {
	Candidates(name string, constraint pkgversion.Constraint) ([]recipe.Recipe, error)
}

// Resolve runs the deterministic backtracking algorithm over the
// given top-level requests and returns a dependency-first plan. On
// failure it returns an *errs.Error of kind Unsatisfiable naming the
// full conflict path.
func Resolve(lister CandidateLister, requests []Request) ([]Pinned, error) {
	r := &run{lister: lister}
	constraints := map[string]pkgversion.Constraint{}
	order := []string{}
	for _, req := range requests {
		if _, ok := constraints[req.Name]; !ok {
			order = append(order, req.Name)
		}
		constraints[req.Name] = mergeConstraint(constraints[req.Name], req.Constraint)
	}

	queue := make([]string, len(order))
	copy(queue, order)

	selection := map[string]recipe.Recipe{}
	deps := map[string][]string{}

	if err := r.solve(queue, constraints, selection, deps, nil); err != nil {
		return nil, err
	}

	return topoOrder(selection, deps), nil
}

type run struct {
	lister CandidateLister
}

// solve attempts to pin every name in queue, trying candidates newest
// first and backtracking to the most recent choice point with
// unexplored alternatives when a constraint intersection becomes
// unsatisfiable.
func (r *run) solve(queue []string, constraints map[string]pkgversion.Constraint, selection map[string]recipe.Recipe, deps map[string][]string, path []string) error {
	if len(queue) == 0 {
		return nil
	}
	name := queue[0]
	rest := queue[1:]

	if onPath(path, name) {
		return cyclic(append(append([]string{}, path...), name))
	}

	if _, already := selection[name]; already {
		return r.solve(rest, constraints, selection, deps, path)
	}

	candidates, err := r.lister.Candidates(name, constraints[name])
	if err != nil {
		return unsatisfiable(append(path, name))
	}
	if len(candidates) == 0 {
		return unsatisfiable(append(path, name))
	}

	nextPath := append(append([]string{}, path...), name)

	for _, candidate := range candidates {
		trialConstraints := cloneConstraints(constraints)
		trialQueue := append([]string{}, rest...)
		ok := true
		var depNames []string
		for _, dep := range candidate.Dependencies {
			depConstraint, err := pkgversion.ParseConstraint(dep.Constraint)
			if err != nil {
				ok = false
				break
			}
			merged := mergeConstraint(trialConstraints[dep.Name], depConstraint)
			trialConstraints[dep.Name] = merged
			if reaches(deps, dep.Name, name, map[string]bool{}) {
				return cyclic(append(append([]string{}, nextPath...), dep.Name))
			}
			if already, queued := selection[dep.Name]; queued {
				v, verr := pkgversion.Parse(already.Version)
				if verr != nil || !merged.Matches(v) {
					ok = false
					break
				}
			} else {
				trialQueue = appendUnique(trialQueue, dep.Name)
			}
			depNames = append(depNames, dep.Name)
		}
		if !ok {
			continue
		}

		selection[name] = candidate
		deps[name] = depNames

		err := r.solve(trialQueue, trialConstraints, selection, deps, nextPath)
		if err == nil {
			return nil
		}
		if isCycle(err) {
			return err
		}

		delete(selection, name)
		delete(deps, name)
	}

	return unsatisfiable(nextPath)
}

func cloneConstraints(m map[string]pkgversion.Constraint) map[string]pkgversion.Constraint {
	out := make(map[string]pkgversion.Constraint, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeConstraint(existing, next pkgversion.Constraint) pkgversion.Constraint {
	return existing.Intersect(next)
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

func unsatisfiable(path []string) error {
	return errs.New(errs.Unsatisfiable, "RESOLVE_UNSATISFIABLE", "no satisfying build plan: conflict path %s", strings.Join(path, " -> "))
}

// onPath reports whether name is already on the current descent path,
// i.e. resolving it would require resolving itself first.
func onPath(path []string, name string) bool {
	for _, n := range path {
		if n == name {
			return true
		}
	}
	return false
}

// reaches reports whether to is reachable from from along the
// dependency edges recorded in deps so far; an edge name -> dep closes
// a cycle exactly when name is reachable from dep.
func reaches(deps map[string][]string, from, to string, seen map[string]bool) bool {
	if from == to {
		return true
	}
	seen[from] = true
	for _, d := range deps[from] {
		if !seen[d] && reaches(deps, d, to, seen) {
			return true
		}
	}
	return false
}

func cyclic(path []string) error {
	return errs.New(errs.Unsatisfiable, "RESOLVE_CYCLE", "circular dependency: %s", strings.Join(path, " -> "))
}

// isCycle reports whether err is a cycle rejection from cyclic, as
// opposed to an ordinary version-conflict Unsatisfiable. A cycle is a
// structural impossibility no alternate candidate at an outer choice
// point can route around, so it propagates straight out of solve
// instead of being treated as "this candidate failed, try the next
// one."
func isCycle(err error) bool {
	e, ok := err.(*errs.Error)
	return ok && e.Code == "RESOLVE_CYCLE"
}

// topoOrder renders the selection into dependency-first order, ties
// broken by request name.
func topoOrder(selection map[string]recipe.Recipe, deps map[string][]string) []Pinned {
	visited := map[string]bool{}
	var out []Pinned

	names := make([]string, 0, len(selection))
	for name := range selection {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		children := append([]string{}, deps[name]...)
		sort.Strings(children)
		for _, dep := range children {
			visit(dep)
		}
		out = append(out, Pinned{Name: name, Recipe: selection[name], Dependencies: deps[name]})
	}
	for _, name := range names {
		visit(name)
	}
	return out
}

// DefaultCandidateLister adapts a *recipe.Catalog, which can only
// report its single best match per constraint, into a CandidateLister
// by asking it again with an added "!=" exclusion of each previous
// winner. This mirrors "collect candidates
// satisfying its constraint, newest first" without requiring the
// catalog to expose a full version listing API.
type DefaultCandidateLister struct {
	Catalog Catalog
	maxTry  int
}

// NewDefaultCandidateLister wraps catalog, trying up to maxTry
// successively-older candidates per name before giving up.
func NewDefaultCandidateLister(catalog Catalog, maxTry int) *DefaultCandidateLister {
	if maxTry <= 0 {
		maxTry = 8
	}
	return &DefaultCandidateLister{Catalog: catalog, maxTry: maxTry}
}

func (d *DefaultCandidateLister) Candidates(name string, constraint pkgversion.Constraint) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	excluded := pkgversion.Any
	for i := 0; i < d.maxTry; i++ {
		current := constraint
		if i > 0 {
			current = constraint.Intersect(excluded)
		}
		r, err := d.Catalog.Find(name, current)
		if err != nil {
			break
		}
		out = append(out, r)
		notThis, parseErr := pkgversion.ParseConstraint(fmt.Sprintf("!=%s", r.Version))
		if parseErr != nil {
			break
		}
		excluded = excluded.Intersect(notThis)
	}
	return out, nil
}
