package constraintmap

import (
	"testing"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/oracle/reforacle"
)

func newConflictOracle() *reforacle.Program {
	// One variable x. "a" forces x true, "d" forces x false; any subset
	// containing both a and d is unsat. b and c are unconstrained.
	p := reforacle.NewProgram([]reforacle.Var{"x"})
	p.Attach(latticebits.Constraint("a"), reforacle.Clause{{Var: "x", Negated: false}})
	p.Attach(latticebits.Constraint("d"), reforacle.Clause{{Var: "x", Negated: true}})
	return p
}

func TestBitsetMapGrowFindsMSS(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	got, err := m.Grow(Subset{}, o)
	if err != nil {
		t.Fatalf("Grow returned error: %v", err)
	}
	want := Subset{"a", "b", "c"}
	if !subsetEqual(got, want) {
		t.Errorf("Grow({}) = %v, want %v", got, want)
	}
	if len(m.MSS()) != 1 {
		t.Errorf("expected one committed MSS, got %d", len(m.MSS()))
	}
}

func TestBitsetMapShrinkFindsMUS(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	got, err := m.Shrink(Subset{"a", "b", "c", "d"}, o)
	if err != nil {
		t.Fatalf("Shrink returned error: %v", err)
	}
	want := Subset{"a", "d"}
	if !subsetEqual(got, want) {
		t.Errorf("Shrink({a,b,c,d}) = %v, want %v", got, want)
	}
	if len(m.MUS()) != 1 {
		t.Errorf("expected one committed MUS, got %d", len(m.MUS()))
	}
}

func TestBitsetMapImplicitSatFromMSSSubset(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	if _, err := m.Grow(Subset{}, o); err != nil {
		t.Fatalf("Grow returned error: %v", err)
	}

	// {b,c} is a subset of the committed MSS {a,b,c} that Grow never
	// probed: must be sat by dominance, with no further oracle involvement.
	got, err := m.CheckSat(Subset{"b", "c"})
	if err != nil {
		t.Fatalf("CheckSat returned error: %v", err)
	}
	if got != SatSat {
		t.Errorf("CheckSat({b,c}) = %v, want SatSat (implicit from MSS dominance)", got)
	}
}

func TestBitsetMapImplicitUnsatFromMUSSuperset(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	if _, err := m.Shrink(Subset{"a", "b", "c", "d"}, o); err != nil {
		t.Fatalf("Shrink returned error: %v", err)
	}

	// {a,b,d} is a strict superset of the committed MUS {a,d}: must be
	// unsat by dominance.
	got, err := m.CheckSat(Subset{"a", "b", "d"})
	if err != nil {
		t.Fatalf("CheckSat returned error: %v", err)
	}
	if got != SatUnsat {
		t.Errorf("CheckSat({a,b,d}) = %v, want SatUnsat (implicit from MUS dominance)", got)
	}
}

func TestBitsetMapCheckSatRejectsUnknownConstraint(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b"})

	if _, err := m.CheckSat(Subset{"z"}); err == nil {
		t.Fatalf("expected an error for an unknown constraint")
	} else if _, ok := err.(*InputError); !ok {
		t.Errorf("CheckSat({z}) error = %T, want *InputError", err)
	}

	if _, err := m.CheckAmbiguity(Subset{"a", "z"}); err == nil {
		t.Fatalf("expected an error for an unknown constraint")
	} else if _, ok := err.(*InputError); !ok {
		t.Errorf("CheckAmbiguity({a,z}) error = %T, want *InputError", err)
	}
}

func TestBitsetMapCheckSatCachesImplicitAnswer(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	if _, err := m.Grow(Subset{}, o); err != nil {
		t.Fatalf("Grow returned error: %v", err)
	}

	// Grow({}) probes {a}, {a,b}, {a,b,c}, {a,b,c,d}; {b,c} is never probed.
	probe := Subset{"b", "c"}
	code := m.encode(probe)
	if _, ok := m.nodes[code]; ok {
		t.Fatalf("node record for %v should not exist before any CheckSat call", probe)
	}

	if _, err := m.CheckSat(probe); err != nil {
		t.Fatalf("CheckSat returned error: %v", err)
	}

	r, ok := m.nodes[code]
	if !ok {
		t.Fatalf("CheckSat({b,c}) should have cached a node record via SetSat")
	}
	if r.IsSat() != SatSat {
		t.Errorf("cached record IsSat() = %v, want SatSat", r.IsSat())
	}
}

func TestBitsetMapBlockDownMarksSupersetsExplored(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	seed := Subset{"a", "b"}
	m.BlockDown(seed)

	for _, s := range []Subset{
		{"a", "b"}, {"a", "b", "c"}, {"a", "b", "d"}, {"a", "b", "c", "d"},
	} {
		code := m.encode(s)
		if m.unexploredHas(code) {
			t.Errorf("BlockDown({a,b}) left %v unexplored, want explored", s)
		}
	}
	// A non-superset must remain unexplored.
	if !m.unexploredHas(m.encode(Subset{"c"})) {
		t.Errorf("BlockDown({a,b}) should not affect {c}")
	}
}

func TestBitsetMapBlockUpMarksSubsetsExplored(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	seed := Subset{"a", "b"}
	m.BlockUp(seed)

	for _, s := range []Subset{
		{"a", "b"}, {"a"}, {"b"}, {},
	} {
		code := m.encode(s)
		if m.unexploredHas(code) {
			t.Errorf("BlockUp({a,b}) left %v unexplored, want explored", s)
		}
	}
	if !m.unexploredHas(m.encode(Subset{"c"})) {
		t.Errorf("BlockUp({a,b}) should not affect {c}")
	}
}

func TestBitsetMapEmptyUniverse(t *testing.T) {
	m := NewBitsetMap(nil)
	if m.NumConstraints() != 0 {
		t.Fatalf("NumConstraints() = %d, want 0", m.NumConstraints())
	}
	got, ok := m.GetUnexplored()
	if !ok {
		t.Fatalf("expected the single empty subset to be unexplored")
	}
	if len(got) != 0 {
		t.Errorf("GetUnexplored() = %v, want the empty subset", got)
	}
	m.BlockUp(Subset{})
	if _, ok := m.GetUnexplored(); ok {
		t.Errorf("expected no unexplored subsets left after blocking the only one")
	}
}

func TestBitsetMapSingleConstraintUniverse(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a"})
	if m.NumConstraints() != 1 {
		t.Fatalf("NumConstraints() = %d, want 1", m.NumConstraints())
	}

	got, ok := m.GetUnexploredMax()
	if !ok {
		t.Fatalf("expected an unexplored subset")
	}
	if !subsetEqual(got, Subset{"a"}) {
		t.Errorf("GetUnexploredMax() = %v, want {a} (the higher-popcount subset)", got)
	}

	// Blocking down from the empty subset marks every subset (including
	// itself) explored: the empty subset is its own superset and {a} is
	// its only proper superset.
	m.BlockDown(Subset{})
	if _, ok := m.GetUnexplored(); ok {
		t.Errorf("expected no unexplored subsets left after blocking down from {}")
	}
}

func TestBitsetMapMSSResultsAreSorted(t *testing.T) {
	m := NewBitsetMap([]latticebits.Constraint{"a", "b", "c", "d"})
	o := newConflictOracle()

	if _, err := m.Grow(Subset{"b"}, o); err != nil {
		t.Fatalf("Grow returned error: %v", err)
	}
	if _, err := m.Grow(Subset{"d"}, o, WithCommit(true)); err != nil {
		t.Fatalf("Grow returned error: %v", err)
	}

	mss := m.MSS()
	for i := 1; i < len(mss); i++ {
		if m.encode(mss[i-1]) >= m.encode(mss[i]) {
			t.Errorf("MSS() not sorted by code at index %d: %v", i, mss)
		}
	}
}

func subsetEqual(a, b Subset) bool {
	if len(a) != len(b) {
		return false
	}
	am, bm := map[latticebits.Constraint]bool{}, map[latticebits.Constraint]bool{}
	for _, c := range a {
		am[c] = true
	}
	for _, c := range b {
		bm[c] = true
	}
	if len(am) != len(bm) {
		return false
	}
	for c := range am {
		if !bm[c] {
			return false
		}
	}
	return true
}
