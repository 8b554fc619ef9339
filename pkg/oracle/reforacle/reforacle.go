// Package reforacle is a reference Oracle implementation for tests,
// godoc examples, and demos. It is not part of the constraint-map core;
// spec.md §1 treats the logic-program evaluator as an external
// collaborator specified only via the oracle.Oracle interface.
//
// The enumeration strategy is adapted from the teacher repository's
// lazy-stream idiom (stream.go's cons-stream model, search.go's
// goal-conjunction search) rewritten here for plain propositional
// satisfiability rather than miniKanren-style relational unification: a
// Program is a set of propositional clauses, one optionally attached to
// each constraint, and a subset S induces the sub-program formed by the
// clauses attached to members of S. CheckSat/CheckAmbiguity pull models
// lazily off a generator stream, stopping as soon as they have seen enough
// (one model for CheckSat, two for CheckAmbiguity) instead of enumerating
// every assignment up front.
package reforacle

import (
	"sort"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticenode"
)

// Var is a propositional variable name in a Program's possible worlds,
// distinct from the constraint identifiers that gate which clauses apply.
type Var string

// Literal is a variable or its negation.
type Literal struct {
	Var      Var
	Negated  bool
}

// Clause is a disjunction of literals.
type Clause []Literal

// Program maps constraints to the clause they contribute when present in a
// subset. A constraint with no attached clause is a no-op: including it
// never affects satisfiability or model count.
type Program struct {
	vars    []Var
	clauses map[latticebits.Constraint]Clause
}

// NewProgram builds a Program over the given propositional variables.
func NewProgram(vars []Var) *Program {
	cp := make([]Var, len(vars))
	copy(cp, vars)
	return &Program{vars: cp, clauses: make(map[latticebits.Constraint]Clause)}
}

// Attach associates clause with constraint c: whenever c is present in a
// subset passed to CheckSat/CheckAmbiguity, clause must hold.
func (p *Program) Attach(c latticebits.Constraint, clause Clause) {
	p.clauses[c] = clause
}

// assignment is a total truth assignment over p.vars, indexed by position.
type assignment []bool

func (p *Program) satisfies(a assignment, clause Clause) bool {
	if len(clause) == 0 {
		return true
	}
	for _, lit := range clause {
		idx := p.varIndex(lit.Var)
		val := a[idx]
		if lit.Negated {
			val = !val
		}
		if val {
			return true
		}
	}
	return false
}

func (p *Program) varIndex(v Var) int {
	for i, candidate := range p.vars {
		if candidate == v {
			return i
		}
	}
	return -1
}

// stream is a lazy cons-stream of models: calling it yields the next model
// (if any) and a continuation stream to fetch the rest. Each step snapshots
// its own assignment rather than sharing mutable state with its
// continuation, so pulling a later model can never see a partial
// assignment left behind by an earlier one.
type stream func() (assignment, stream, bool)

// modelStream enumerates, lazily, every assignment over p.vars satisfying
// every clause attached to a constraint in active. Models are walked in
// ascending order of their bitmask over p.vars: a caller that only wants
// the first model or two never builds the rest of the search space.
func (p *Program) modelStream(active []Clause) stream {
	n := len(p.vars)
	total := 1
	if n > 0 {
		total = 1 << uint(n)
	}
	return enumerateFrom(p, active, 0, total, n)
}

// enumerateFrom yields the lexicographically-next satisfying assignment at
// or after bitmask next, up to (excluding) total.
func enumerateFrom(p *Program, active []Clause, next, total, n int) stream {
	if next >= total {
		return emptyStream
	}
	return func() (assignment, stream, bool) {
		for m := next; m < total; m++ {
			a := bitsToAssignment(m, n)
			if p.satisfiesAll(a, active) {
				return a, enumerateFrom(p, active, m+1, total, n), true
			}
		}
		return assignment{}, nil, false
	}
}

func bitsToAssignment(mask, n int) assignment {
	a := make(assignment, n)
	for i := 0; i < n; i++ {
		a[i] = (mask>>uint(i))&1 == 1
	}
	return a
}

func (p *Program) satisfiesAll(a assignment, active []Clause) bool {
	for _, clause := range active {
		if !p.satisfies(a, clause) {
			return false
		}
	}
	return true
}

func emptyStream() (assignment, stream, bool) { return assignment{}, nil, false }

// activeClauses returns the clauses contributed by the constraints in s.
func (p *Program) activeClauses(s []latticebits.Constraint) []Clause {
	out := make([]Clause, 0, len(s))
	for _, c := range s {
		if clause, ok := p.clauses[c]; ok {
			out = append(out, clause)
		}
	}
	return out
}

// CheckSat implements oracle.Oracle: true iff at least one model exists for
// the sub-program induced by s.
func (p *Program) CheckSat(s []latticebits.Constraint) (bool, error) {
	st := p.modelStream(p.activeClauses(s))
	_, _, ok := st()
	return ok, nil
}

// CheckAmbiguity implements oracle.Oracle: counts up to two models of the
// sub-program induced by s and classifies accordingly.
func (p *Program) CheckAmbiguity(s []latticebits.Constraint) (latticenode.Ambiguity, error) {
	count, _ := p.NumModels(s, 2)
	switch count {
	case 0:
		return latticenode.AmbiguitySatUnsat, nil
	case 1:
		return latticenode.Unambiguous, nil
	default:
		return latticenode.Ambiguous, nil
	}
}

// NumModels counts models of the sub-program induced by s, stopping once it
// has seen limit of them (limit <= 0 means "count them all"). It returns
// the count actually found, which is exact iff it is strictly less than
// limit (or limit <= 0).
func (p *Program) NumModels(s []latticebits.Constraint, limit int) (int, bool) {
	st := p.modelStream(p.activeClauses(s))
	count := 0
	for {
		if limit > 0 && count >= limit {
			return count, false
		}
		_, rest, ok := st()
		if !ok {
			return count, true
		}
		count++
		st = rest
	}
}

// SortedVars returns the program's variables in a stable order, useful for
// deterministic test fixtures.
func (p *Program) SortedVars() []Var {
	cp := make([]Var, len(p.vars))
	copy(cp, p.vars)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return cp
}
