package pkgversion

import (
	"fmt"
	"sort"
	"strings"
)

// Op is one clause operator in a version constraint.
type Op string

const (
	OpEqual       Op = "="
	OpNotEqual    Op = "!="
	OpLess        Op = "<"
	OpLessEqual   Op = "<="
	OpGreater     Op = ">"
	OpGreaterEqual Op = ">="
	OpPessimistic Op = "~>"
	OpCompatible  Op = "compatible-with"
)

// Clause is one (op, version) predicate.
type Clause struct {
	Op      Op
	Version Version
}

// Constraint is a conjunction of clauses. The zero value matches any
// version ("any" in the terms of the source this was distilled from).
type Constraint struct {
	clauses []Clause
	raw     string
}

// Any is a constraint that matches every version.
var Any = Constraint{}

// ParseConstraint parses a comma-separated list of clauses, e.g.
// ">=1.2,<2.0" or "~>1.4" or "compatible-with 2.1.0". An empty or
// "latest" string yields Any.
func ParseConstraint(spec string) (Constraint, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" || strings.EqualFold(trimmed, "latest") {
		return Any, nil
	}
	parts := strings.Split(trimmed, ",")
	clauses := make([]Clause, 0, len(parts))
	for _, part := range parts {
		clause, err := parseClause(part)
		if err != nil {
			return Constraint{}, err
		}
		clauses = append(clauses, clause)
	}
	sort.Slice(clauses, func(i, j int) bool {
		if clauses[i].Op != clauses[j].Op {
			return clauses[i].Op < clauses[j].Op
		}
		return clauses[i].Version.raw < clauses[j].Version.raw
	})
	return Constraint{clauses: clauses, raw: trimmed}, nil
}

func parseClause(part string) (Clause, error) {
	p := strings.TrimSpace(part)
	if p == "" {
		return Clause{}, fmt.Errorf("pkgversion: empty constraint clause")
	}
	for _, op := range []Op{OpGreaterEqual, OpLessEqual, OpPessimistic, OpNotEqual, OpEqual, OpGreater, OpLess} {
		if strings.HasPrefix(p, string(op)) {
			ver, err := Parse(strings.TrimSpace(strings.TrimPrefix(p, string(op))))
			if err != nil {
				return Clause{}, err
			}
			return Clause{Op: op, Version: ver}, nil
		}
	}
	if strings.HasPrefix(p, string(OpCompatible)) {
		ver, err := Parse(strings.TrimSpace(strings.TrimPrefix(p, string(OpCompatible))))
		if err != nil {
			return Clause{}, err
		}
		return Clause{Op: OpCompatible, Version: ver}, nil
	}
	// Bare version token defaults to equality.
	ver, err := Parse(p)
	if err != nil {
		return Clause{}, fmt.Errorf("pkgversion: invalid constraint clause %q: %w", part, err)
	}
	return Clause{Op: OpEqual, Version: ver}, nil
}

// Matches reports whether v satisfies every clause in c.
func (c Constraint) Matches(v Version) bool {
	for _, cl := range c.clauses {
		if !cl.matches(v) {
			return false
		}
	}
	return true
}

func (cl Clause) matches(v Version) bool {
	switch cl.Op {
	case OpEqual:
		return v.Equal(cl.Version)
	case OpNotEqual:
		return !v.Equal(cl.Version)
	case OpLess:
		return v.Less(cl.Version)
	case OpLessEqual:
		return v.Less(cl.Version) || v.Equal(cl.Version)
	case OpGreater:
		return cl.Version.Less(v)
	case OpGreaterEqual:
		return cl.Version.Less(v) || v.Equal(cl.Version)
	case OpPessimistic:
		return pessimisticMatches(cl.Version, v)
	case OpCompatible:
		return compatibleMatches(cl.Version, v)
	default:
		return false
	}
}

// pessimisticMatches implements "~>": v must be at least floor, and
// must not advance past the precision of floor's second-most
// significant numeric component. "~>1.2.3" allows [1.2.3, 1.3.0);
// "~>1.2" allows [1.2, 2.0).
func pessimisticMatches(floor, v Version) bool {
	if v.Less(floor) {
		return false
	}
	ceiling := floor.numeric
	n := len(ceiling)
	if n < 2 {
		return true
	}
	bumped := make([]int64, n-1)
	copy(bumped, ceiling[:n-1])
	bumped[n-2]++
	ceilingVersion := Version{numeric: bumped}
	return v.Less(ceilingVersion)
}

// compatibleMatches implements "compatible-with" as the npm-style
// caret range: versions sharing the same leading nonzero component as
// floor, and not less than floor.
func compatibleMatches(floor, v Version) bool {
	if v.Less(floor) {
		return false
	}
	leadIdx := 0
	for leadIdx < len(floor.numeric)-1 && floor.numeric[leadIdx] == 0 {
		leadIdx++
	}
	return component(v.numeric, leadIdx) == component(floor.numeric, leadIdx)
}

// Intersect returns a constraint that matches only versions both c
// and other match. Clauses are concatenated; semantic emptiness is
// left to the caller to detect via a search over candidate versions.
func (c Constraint) Intersect(other Constraint) Constraint {
	merged := make([]Clause, 0, len(c.clauses)+len(other.clauses))
	merged = append(merged, c.clauses...)
	merged = append(merged, other.clauses...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Op != merged[j].Op {
			return merged[i].Op < merged[j].Op
		}
		return merged[i].Version.raw < merged[j].Version.raw
	})
	raw := c.raw
	if other.raw != "" {
		if raw != "" {
			raw += ","
		}
		raw += other.raw
	}
	return Constraint{clauses: merged, raw: raw}
}

// String renders the constraint's canonical textual form.
func (c Constraint) String() string {
	if len(c.clauses) == 0 {
		return "any"
	}
	parts := make([]string, len(c.clauses))
	for i, cl := range c.clauses {
		parts[i] = string(cl.Op) + cl.Version.raw
	}
	return strings.Join(parts, ",")
}

// Equal reports structural equality, per the specification's data
// model ("Equality of two constraints is structural").
func (c Constraint) Equal(other Constraint) bool {
	return c.String() == other.String()
}
