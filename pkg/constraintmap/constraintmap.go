// Package constraintmap implements the Constraint Map: the data structure
// and algorithms that represent the subset lattice of a fixed universe of
// constraints, memoize oracle answers, infer satisfiability and ambiguity
// of unvisited subsets from committed MSS/MUS/MAS/MUAS sets via lattice
// dominance, and drive grow/shrink/grow-ambiguous/shrink-unambiguous seed
// refinement.
//
// Two concrete implementations are provided: BitsetMap, which enumerates
// "next unexplored" over a bitset of the full 2^n lattice (§4.4), and
// SolverMap, which delegates that choice to an external SAT solver via a
// growing CNF encoding with blocking clauses (§4.5). Both satisfy the Map
// interface; callers should depend on Map rather than a concrete type,
// per spec.md §9's "Polymorphism" note.
package constraintmap

import (
	"fmt"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticenode"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/oracle"
)

// Re-exported for callers that only import constraintmap.
type (
	Constraint = latticebits.Constraint
	Sat        = latticenode.Sat
	Ambiguity  = latticenode.Ambiguity
	EvalState  = latticenode.EvalState
	NumPWs     = latticenode.NumPWs
	Qualifier  = latticenode.Qualifier
)

const (
	SatUnknown = latticenode.SatUnknown
	SatSat     = latticenode.SatSat
	SatUnsat   = latticenode.SatUnsat

	AmbiguityUnknown  = latticenode.AmbiguityUnknown
	Ambiguous         = latticenode.Ambiguous
	Unambiguous       = latticenode.Unambiguous
	AmbiguitySatUnsat = latticenode.AmbiguitySatUnsat

	Unevaluated = latticenode.Unevaluated
	Evaluated   = latticenode.Evaluated

	QualifierUnevaluated = latticenode.QualifierUnevaluated
	AtLeast              = latticenode.AtLeast
	Exact                = latticenode.Exact
)

// Subset is an ordered view of a set of constraints, as passed to and
// returned from Map operations. Order is not significant for equality; it
// is retained only for readable error messages and deterministic output in
// tests.
type Subset []Constraint

// InputError reports that a caller-supplied subset contains a constraint
// identifier outside the map's universe. A universe too large for BitsetMap
// is not reported as an InputError: NewBitsetMap panics instead.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return fmt.Sprintf("constraintmap: %s", e.Detail) }

// validateSubset reports an *InputError for the first constraint in s not
// present in u, per spec.md §7's requirement that operations surface
// InputError for invalid constraint references.
func validateSubset(u *latticebits.Universe, s Subset) error {
	for _, c := range s {
		if _, ok := u.IndexOf(c); !ok {
			return &InputError{Detail: fmt.Sprintf("unknown constraint %q", c)}
		}
	}
	return nil
}

// Map is the capability set common to every constraint-map implementation:
// track MSS/MUS/MAS/MUAS, answer sat/ambiguity queries by explicit lookup
// or implicit lattice inference, and refine seeds into maximal/minimal
// witnesses.
type Map interface {
	// NumConstraints returns n, the size of the universe.
	NumConstraints() int

	// CheckSat answers the three-valued satisfiability query of §4.3. It
	// returns an *InputError if s references a constraint outside the
	// map's universe, and a *latticenode.ConsistencyError if caching the
	// answer onto s's node record contradicts one already recorded there.
	CheckSat(s Subset) (Sat, error)

	// CheckAmbiguity answers the four-valued ambiguity query of §4.3. Error
	// conditions match CheckSat.
	CheckAmbiguity(s Subset) (Ambiguity, error)

	// CheckNodeNumPWs returns the best currently-known possible-world count
	// for s, explicit or implicit, per §4.3.
	CheckNodeNumPWs(s Subset) NumPWs

	// CheckNodeEvalState reports whether s has an explicit record or a
	// definite implicit sat answer.
	CheckNodeEvalState(s Subset) EvalState

	// GetUnexplored returns any unexplored subset, or false if none remain.
	GetUnexplored() (Subset, bool)

	// GetUnexploredMax returns the unexplored subset of maximum
	// cardinality, or false if none remain.
	GetUnexploredMax() (Subset, bool)

	// BlockUp marks s and every subset of s as explored (used after
	// committing an MUS: every subset of an MUS is already known sat, and
	// revisiting it would waste an oracle call).
	BlockUp(s Subset)

	// BlockDown marks s and every superset of s as explored (used after
	// committing an MSS: every superset is unsat or already accounted for).
	BlockDown(s Subset)

	// Grow refines seed (which must be oracle-sat) into a maximal
	// satisfiable subset.
	Grow(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error)

	// Shrink refines seed (which must be oracle-unsat) into a minimal
	// unsatisfiable subset.
	Shrink(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error)

	// GrowAmbiguous refines seed (which must be oracle-ambiguous) into a
	// maximal ambiguous subset.
	GrowAmbiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error)

	// ShrinkUnambiguous refines seed (which must be oracle-unambiguous)
	// into a minimal unambiguous subset.
	ShrinkUnambiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error)

	// MSS, MUS, MAS, MUAS return the committed witness sets accumulated so
	// far. Each returned slice's elements are pairwise incomparable.
	MSS() []Subset
	MUS() []Subset
	MAS() []Subset
	MUAS() []Subset
}

// refineConfig is the resolved form of a RefineOption chain. Defaults match
// spec.md §6: update_map_with_* and update_map_with_intermediate_results
// both default true.
type refineConfig struct {
	updateMSS, updateMUS, updateMAS, updateMUAS bool
	updateIntermediate                          bool
}

func defaultRefineConfig() refineConfig {
	return refineConfig{
		updateMSS:           true,
		updateMUS:           true,
		updateMAS:           true,
		updateMUAS:          true,
		updateIntermediate:  true,
	}
}

// RefineOption configures a single Grow/Shrink/GrowAmbiguous/
// ShrinkUnambiguous call, per spec.md §6's configuration surface.
type RefineOption func(*refineConfig)

// WithCommit controls whether the refined result is committed to its
// corresponding MSS/MUS/MAS/MUAS collection. Default true.
func WithCommit(commit bool) RefineOption {
	return func(c *refineConfig) {
		c.updateMSS, c.updateMUS, c.updateMAS, c.updateMUAS = commit, commit, commit, commit
	}
}

// WithIntermediateUpdates controls whether per-step oracle answers are
// recorded as num_pws hints on probed nodes. Default true.
func WithIntermediateUpdates(update bool) RefineOption {
	return func(c *refineConfig) { c.updateIntermediate = update }
}

func resolveOptions(opts []RefineOption) refineConfig {
	cfg := defaultRefineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
