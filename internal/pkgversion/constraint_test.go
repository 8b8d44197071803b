package pkgversion

import "testing"

func mustV(t *testing.T, raw string) Version {
	t.Helper()
	v, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return v
}

func TestConstraintMatchesBasicOps(t *testing.T) {
	cases := []struct {
		spec string
		ver  string
		want bool
	}{
		{">=1.2", "1.2.0", true},
		{">=1.2", "1.1.9", false},
		{"<2.0", "1.9.9", true},
		{"<2.0", "2.0.0", false},
		{">=1.2,<2.0", "1.5.0", true},
		{">=1.2,<2.0", "2.0.0", false},
		{"!=1.3.0", "1.3.0", false},
		{"!=1.3.0", "1.3.1", true},
		{"", "9.9.9", true},
		{"latest", "9.9.9", true},
	}
	for _, tc := range cases {
		c, err := ParseConstraint(tc.spec)
		if err != nil {
			t.Fatalf("ParseConstraint(%q): %v", tc.spec, err)
		}
		if got := c.Matches(mustV(t, tc.ver)); got != tc.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tc.spec, tc.ver, got, tc.want)
		}
	}
}

func TestPessimisticOperator(t *testing.T) {
	c, err := ParseConstraint("~>1.2.3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Matches(mustV(t, "1.2.9")) {
		t.Errorf("~>1.2.3 should match 1.2.9")
	}
	if c.Matches(mustV(t, "1.3.0")) {
		t.Errorf("~>1.2.3 should not match 1.3.0")
	}
	if c.Matches(mustV(t, "1.2.2")) {
		t.Errorf("~>1.2.3 should not match 1.2.2 (below floor)")
	}

	cMinor, err := ParseConstraint("~>1.2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cMinor.Matches(mustV(t, "1.9.9")) {
		t.Errorf("~>1.2 should match 1.9.9")
	}
	if cMinor.Matches(mustV(t, "2.0.0")) {
		t.Errorf("~>1.2 should not match 2.0.0")
	}
}

func TestCompatibleWithOperator(t *testing.T) {
	c, err := ParseConstraint("compatible-with 1.2.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Matches(mustV(t, "1.9.0")) {
		t.Errorf("compatible-with 1.2.0 should match 1.9.0")
	}
	if c.Matches(mustV(t, "2.0.0")) {
		t.Errorf("compatible-with 1.2.0 should not match 2.0.0")
	}
}

func TestConstraintEqualityIsStructural(t *testing.T) {
	a, _ := ParseConstraint(">=1.2,<2.0")
	b, _ := ParseConstraint("<2.0,>=1.2")
	if !a.Equal(b) {
		t.Errorf("constraints with reordered clauses should be structurally equal")
	}
	c, _ := ParseConstraint(">=1.3,<2.0")
	if a.Equal(c) {
		t.Errorf("constraints with different clauses should not be equal")
	}
}

func TestIntersectNarrowsRange(t *testing.T) {
	a, _ := ParseConstraint(">=1.0")
	b, _ := ParseConstraint("<2.0")
	merged := a.Intersect(b)
	if !merged.Matches(mustV(t, "1.5.0")) {
		t.Errorf("intersection should match 1.5.0")
	}
	if merged.Matches(mustV(t, "2.0.0")) {
		t.Errorf("intersection should not match 2.0.0")
	}
}
