// Package satenc wraps github.com/crillab/gophersat's pseudo-boolean solving
// entry point for use by constraintmap.SolverMap (§4.5), the same entry
// point the pack's module-selection resolver uses to pick dependency
// versions: propositional clauses collected into a solver.Problem via
// solver.ParsePBConstrs, solved with solver.New(prob).Solve(). Variables are
// 1-indexed positive integers; a literal is the variable's number, or its
// negation, following DIMACS convention.
package satenc

import (
	"github.com/crillab/gophersat/solver"
)

// Clause is a disjunction of DIMACS-style literals: a positive int asserts
// that variable, a negative int asserts its negation.
type Clause []int

// Result is the outcome of solving a CNF instance.
type Result struct {
	// Sat is true iff a model was found.
	Sat bool
	// Model holds one boolean per variable 1..n (Model[0] is variable 1),
	// valid only when Sat is true.
	Model []bool
}

func toPBConstrs(clauses []Clause) []solver.PBConstr {
	constrs := make([]solver.PBConstr, len(clauses))
	for i, c := range clauses {
		constrs[i] = solver.PropClause([]int(c)...)
	}
	return constrs
}

// Solve runs clauses against gophersat and returns the first model found, if
// any.
func Solve(clauses []Clause) (Result, error) {
	prob := solver.ParsePBConstrs(toPBConstrs(clauses))
	s := solver.New(prob)
	if status := s.Solve(); status != solver.Sat {
		return Result{Sat: false}, nil
	}
	return Result{Sat: true, Model: s.Model()}, nil
}

// SolveMaxCardinality solves clauses subject to the additional constraint
// that as many of maximize's variables as possible are true. It drives
// GetUnexploredMax: gophersat has no native #maximize directive, but its
// pseudo-boolean cost function does, so a cost of -1 per variable in
// maximize turns cost minimization into cardinality maximization in a
// single solve, the same mechanism the pack's dependency resolver uses to
// prefer newer module versions via SetCostFunc.
func SolveMaxCardinality(clauses []Clause, maximize []int) (Result, error) {
	prob := solver.ParsePBConstrs(toPBConstrs(clauses))

	lits := make([]solver.Lit, len(maximize))
	coeffs := make([]int, len(maximize))
	for i, v := range maximize {
		lits[i] = solver.Var(v - 1).Lit()
		coeffs[i] = -1
	}
	prob.SetCostFunc(lits, coeffs)

	s := solver.New(prob)
	if status := s.Solve(); status != solver.Sat {
		return Result{Sat: false}, nil
	}
	return Result{Sat: true, Model: s.Model()}, nil
}
