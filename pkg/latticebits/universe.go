package latticebits

import "fmt"

// Constraint is an opaque identifier toggled on or off in a subset.
type Constraint string

// Universe is the fixed ordered sequence C = [c_0, ..., c_n-1] a lattice is
// built over. Position i maps to bit n-1-i of a Code.
type Universe struct {
	constraints []Constraint
	index       map[Constraint]int
}

// NewUniverse builds a Universe from an ordered, distinct list of
// constraints. It panics if constraints contains a duplicate, since a
// malformed universe is a construction-time programmer error, not a
// recoverable runtime condition.
func NewUniverse(constraints []Constraint) *Universe {
	index := make(map[Constraint]int, len(constraints))
	for i, c := range constraints {
		if _, dup := index[c]; dup {
			panic(fmt.Sprintf("latticebits: duplicate constraint %q", c))
		}
		index[c] = i
	}
	cp := make([]Constraint, len(constraints))
	copy(cp, constraints)
	return &Universe{constraints: cp, index: index}
}

// Len returns n, the number of constraints in the universe.
func (u *Universe) Len() int { return len(u.constraints) }

// At returns the constraint at position i.
func (u *Universe) At(i int) Constraint { return u.constraints[i] }

// IndexOf returns the position of c in the universe, and whether it was
// found. Callers that need to reject unknown identifiers should treat a
// false return as an InputError.
func (u *Universe) IndexOf(c Constraint) (int, bool) {
	i, ok := u.index[c]
	return i, ok
}

// Encode converts a set of constraints into its Code. Unknown constraints
// are silently ignored by this low-level helper. constraintmap's CheckSat
// and CheckAmbiguity validate subsets against IndexOf and return an
// InputError before encoding; its other operations (Grow, Shrink, BlockUp,
// BlockDown, CheckNodeNumPWs, ...) encode without validating, so an unknown
// constraint passed to them is dropped.
func (u *Universe) Encode(cons []Constraint) Code {
	var code Code
	n := u.Len()
	for _, c := range cons {
		if i, ok := u.index[c]; ok {
			code |= 1 << uint(n-1-i)
		}
	}
	return code
}

// Decode converts a Code back into its ordered constraint set.
func (u *Universe) Decode(code Code) []Constraint {
	n := u.Len()
	out := make([]Constraint, 0, Popcount(code))
	for i := 0; i < n; i++ {
		shift := n - 1 - i
		if (code>>uint(shift))&1 == 1 {
			out = append(out, u.constraints[i])
		}
	}
	return out
}

// All returns the full constraint list in order.
func (u *Universe) All() []Constraint {
	cp := make([]Constraint, len(u.constraints))
	copy(cp, u.constraints)
	return cp
}
