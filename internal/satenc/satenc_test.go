package satenc

import "testing"

func TestSolveSatisfiable(t *testing.T) {
	// (x1 OR x2) AND (NOT x1 OR x2): x2 must be true.
	res, err := Solve([]Clause{{1, 2}, {-1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Sat {
		t.Fatalf("expected the instance to be satisfiable")
	}
	if len(res.Model) < 2 {
		t.Fatalf("Model too short: %v", res.Model)
	}
	if !res.Model[1] {
		t.Errorf("expected variable 2 to be true in every model")
	}
}

func TestSolveUnsatisfiable(t *testing.T) {
	// x1 AND NOT x1.
	res, err := Solve([]Clause{{1}, {-1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sat {
		t.Fatalf("expected the instance to be unsatisfiable")
	}
}

func TestSolveMaxCardinalityPrefersMoreTrue(t *testing.T) {
	// Three independent variables, (x1 OR x2 OR x3) to keep at least one
	// true, but nothing else constrains them: maximizing cardinality
	// should set all three true.
	res, err := SolveMaxCardinality([]Clause{{1, 2, 3}}, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Sat {
		t.Fatalf("expected a satisfying assignment")
	}
	for i, v := range res.Model[:3] {
		if !v {
			t.Errorf("expected variable %d to be true under cardinality maximization, model=%v", i+1, res.Model)
		}
	}
}

func TestSolveMaxCardinalityRespectsConflict(t *testing.T) {
	// x1 and x2 cannot both be true (NOT x1 OR NOT x2); maximizing over
	// {x1, x2} should still pick exactly one of them true rather than
	// giving up.
	res, err := SolveMaxCardinality([]Clause{{-1, -2}}, []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Sat {
		t.Fatalf("expected a satisfying assignment")
	}
	if res.Model[0] && res.Model[1] {
		t.Errorf("x1 and x2 must not both be true: model=%v", res.Model)
	}
	if !res.Model[0] && !res.Model[1] {
		t.Errorf("cardinality maximization should set at least one of x1, x2 true: model=%v", res.Model)
	}
}
