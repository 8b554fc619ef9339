// Package oracle defines the boundary between a constraint map and the
// logic-program evaluator that actually decides satisfiability and
// ambiguity. The evaluator itself is out of scope for this repository (see
// spec.md §1); this package only specifies the interface a caller's
// evaluator must satisfy, plus a small reference implementation in
// oracle/reforacle for tests and examples.
package oracle

import (
	"fmt"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticenode"
)

// Oracle answers satisfiability and ambiguity questions about a subset of
// constraints. Implementations are polymorphic over this capability set:
// the map never inspects the concrete evaluator behind it. An Oracle is
// stateless from the map's point of view (it MAY cache internally) and MUST
// be deterministic for a given subset.
type Oracle interface {
	// CheckSat reports whether the program induced by s is satisfiable.
	CheckSat(s []latticebits.Constraint) (bool, error)

	// CheckAmbiguity reports whether the program induced by s has zero,
	// one, or at least two possible worlds.
	CheckAmbiguity(s []latticebits.Constraint) (latticenode.Ambiguity, error)
}

// Error wraps a failure raised by an Oracle. It is propagated by
// constraintmap operations unmemoized and unswallowed: the refinement in
// progress is abandoned with no commit, per spec.md §7.
type Error struct {
	Subset []latticebits.Constraint
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle: %v (subset=%v)", e.Err, e.Subset)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error from a lower-level failure, tagging it with the
// subset that was being evaluated when it occurred.
func Wrap(subset []latticebits.Constraint, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Subset: subset, Err: err}
}
