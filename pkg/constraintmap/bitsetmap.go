package constraintmap

import (
	"sort"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticenode"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/oracle"
	"github.com/sirupsen/logrus"
)

// denseThreshold is the n at or above which BitsetMap stores
// explored/unexplored as a latticebits.DenseCodeSet instead of a Go map,
// per spec.md §5's "dense bitset... when n >= 20" guidance.
const denseThreshold = 20

// BitsetMap is the Constraint Map implementation keyed by native integer
// subset codes (C4). It is appropriate for universes up to the machine
// word width (64 constraints); SolverMap should be used for larger n.
type BitsetMap struct {
	universe *latticebits.Universe
	n        int

	nodes map[latticebits.Code]*latticenode.Record

	mss, mus, mas, muas map[latticebits.Code]struct{}

	// Small-n bookkeeping.
	unexploredSmall, exploredSmall map[latticebits.Code]struct{}

	// Large-n bookkeeping (n >= denseThreshold).
	unexploredDense, exploredDense *latticebits.DenseCodeSet

	dense bool

	log *logrus.Logger
}

// BitsetMapOption configures a BitsetMap at construction time.
type BitsetMapOption func(*BitsetMap)

// WithLogger overrides the default logger (logrus.StandardLogger()).
func WithLogger(log *logrus.Logger) BitsetMapOption {
	return func(m *BitsetMap) { m.log = log }
}

// NewBitsetMap builds a BitsetMap over constraints, with the full lattice
// initially unexplored. It panics if constraints contains a duplicate
// (a construction-time programmer error) or if n exceeds the supported
// bit width (64); callers with larger universes should use SolverMap.
func NewBitsetMap(constraints []latticebits.Constraint, opts ...BitsetMapOption) *BitsetMap {
	u := latticebits.NewUniverse(constraints)
	n := u.Len()
	if n > 64 {
		panic("constraintmap: BitsetMap supports at most 64 constraints; use SolverMap for larger universes")
	}

	m := &BitsetMap{
		universe: u,
		n:        n,
		nodes:    make(map[latticebits.Code]*latticenode.Record),
		mss:      make(map[latticebits.Code]struct{}),
		mus:      make(map[latticebits.Code]struct{}),
		mas:      make(map[latticebits.Code]struct{}),
		muas:     make(map[latticebits.Code]struct{}),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if n >= denseThreshold {
		m.dense = true
		m.unexploredDense = latticebits.NewFullDenseCodeSet(n)
		m.exploredDense = latticebits.NewDenseCodeSet(n)
	} else {
		m.unexploredSmall = make(map[latticebits.Code]struct{}, 1<<uint(n))
		m.exploredSmall = make(map[latticebits.Code]struct{})
		total := 1
		if n > 0 {
			total = 1 << uint(n)
		}
		for i := 0; i < total; i++ {
			m.unexploredSmall[latticebits.Code(i)] = struct{}{}
		}
	}

	return m
}

func (m *BitsetMap) NumConstraints() int { return m.n }

func (m *BitsetMap) getOrInsert(code latticebits.Code) *latticenode.Record {
	if r, ok := m.nodes[code]; ok {
		return r
	}
	r := &latticenode.Record{}
	m.nodes[code] = r
	return r
}

func (m *BitsetMap) encode(s Subset) latticebits.Code {
	return m.universe.Encode([]latticebits.Constraint(s))
}

func (m *BitsetMap) decode(code latticebits.Code) Subset {
	return Subset(m.universe.Decode(code))
}

// explicitSat looks up a definite satisfiability answer recorded directly
// on code's node, without consulting lattice dominance.
func (m *BitsetMap) explicitSat(code latticebits.Code) (latticenode.Sat, bool) {
	r, ok := m.nodes[code]
	if !ok {
		return latticenode.SatUnknown, false
	}
	sat := r.IsSat()
	return sat, sat != latticenode.SatUnknown
}

func (m *BitsetMap) explicitAmbiguity(code latticebits.Code) (latticenode.Ambiguity, bool) {
	r, ok := m.nodes[code]
	if !ok {
		return latticenode.AmbiguityUnknown, false
	}
	amb := r.IsAmbiguous()
	return amb, amb != latticenode.AmbiguityUnknown
}

// supersetOrEqual reports whether a ⊇ b (non-strict), i.e. whether b ⊆ a.
func supersetOrEqual(a, b latticebits.Code) bool {
	return a == b || latticebits.IsAncestor(a, b)
}

// implicitSat implements §4.3's rule 2 for check_sat: for every M in
// mus_set ∪ mss_set, S ⊆ M implies sat and S ⊇ M implies unsat; for every M
// in mas_set ∪ muas_set, S ⊆ M implies sat (any subset of an ambiguous or
// unambiguous set has at least one model).
func (m *BitsetMap) implicitSat(code latticebits.Code) (latticenode.Sat, bool) {
	for c := range m.mus {
		if supersetOrEqual(c, code) {
			return latticenode.SatSat, true
		}
		if supersetOrEqual(code, c) {
			return latticenode.SatUnsat, true
		}
	}
	for c := range m.mss {
		if supersetOrEqual(c, code) {
			return latticenode.SatSat, true
		}
		if supersetOrEqual(code, c) {
			return latticenode.SatUnsat, true
		}
	}
	for c := range m.mas {
		if supersetOrEqual(c, code) {
			return latticenode.SatSat, true
		}
	}
	for c := range m.muas {
		if supersetOrEqual(c, code) {
			return latticenode.SatSat, true
		}
	}
	return latticenode.SatUnknown, false
}

// implicitAmbiguity implements §4.3's rule 2 for check_ambiguity, including
// the retained (conservatively-unsafe) Open Question behavior: any S ⊆ M
// for M a committed MAS or MUAS is reported ambiguous, even though a
// strict subset of a MUAS need not actually be ambiguous.
func (m *BitsetMap) implicitAmbiguity(code latticebits.Code) (latticenode.Ambiguity, bool) {
	for c := range m.mas {
		if supersetOrEqual(c, code) {
			return latticenode.Ambiguous, true
		}
	}
	for c := range m.muas {
		if supersetOrEqual(c, code) {
			return latticenode.Ambiguous, true
		}
	}
	for c := range m.mus {
		if supersetOrEqual(code, c) {
			return latticenode.AmbiguitySatUnsat, true
		}
	}
	for c := range m.mss {
		if supersetOrEqual(code, c) {
			return latticenode.AmbiguitySatUnsat, true
		}
	}
	return latticenode.AmbiguityUnknown, false
}

// CheckSat validates s, then answers by explicit record, falling back to
// implicit lattice dominance. A dominance-derived answer is cached onto
// s's node record via Record.SetSat so later explicit lookups (and
// CheckNodeEvalState) see it directly.
func (m *BitsetMap) CheckSat(s Subset) (Sat, error) {
	if err := validateSubset(m.universe, s); err != nil {
		return latticenode.SatUnknown, err
	}
	code := m.encode(s)
	if sat, ok := m.explicitSat(code); ok {
		return sat, nil
	}
	if sat, ok := m.implicitSat(code); ok {
		if err := m.getOrInsert(code).SetSat(sat == latticenode.SatSat); err != nil {
			return latticenode.SatUnknown, err
		}
		return sat, nil
	}
	return latticenode.SatUnknown, nil
}

// CheckAmbiguity validates s, then answers by explicit record, falling
// back to implicit lattice dominance, caching a dominance-derived answer
// via Record.SetAmbiguity as CheckSat does.
func (m *BitsetMap) CheckAmbiguity(s Subset) (Ambiguity, error) {
	if err := validateSubset(m.universe, s); err != nil {
		return latticenode.AmbiguityUnknown, err
	}
	code := m.encode(s)
	if amb, ok := m.explicitAmbiguity(code); ok {
		return amb, nil
	}
	if amb, ok := m.implicitAmbiguity(code); ok {
		if err := m.getOrInsert(code).SetAmbiguity(amb); err != nil {
			return latticenode.AmbiguityUnknown, err
		}
		return amb, nil
	}
	return latticenode.AmbiguityUnknown, nil
}

func (m *BitsetMap) CheckNodeNumPWs(s Subset) NumPWs {
	code := m.encode(s)
	if r, ok := m.nodes[code]; ok {
		if pws := r.GetNumPWs(); pws.Qualifier != latticenode.QualifierUnevaluated {
			return pws
		}
	}
	if sat, ok := m.implicitSat(code); ok {
		if sat == latticenode.SatSat {
			return NumPWs{Count: 1, Qualifier: latticenode.AtLeast}
		}
		return NumPWs{Count: 0, Qualifier: latticenode.Exact}
	}
	return NumPWs{Count: -1, Qualifier: latticenode.QualifierUnevaluated}
}

func (m *BitsetMap) CheckNodeEvalState(s Subset) EvalState {
	code := m.encode(s)
	if r, ok := m.nodes[code]; ok {
		return r.EvalState()
	}
	if _, ok := m.implicitSat(code); ok {
		return latticenode.Evaluated
	}
	return latticenode.Unevaluated
}

func (m *BitsetMap) unexploredHas(code latticebits.Code) bool {
	if m.dense {
		return m.unexploredDense.Has(code)
	}
	_, ok := m.unexploredSmall[code]
	return ok
}

func (m *BitsetMap) moveToExplored(code latticebits.Code) {
	if m.dense {
		m.unexploredDense.Remove(code)
		m.exploredDense.Add(code)
		return
	}
	delete(m.unexploredSmall, code)
	m.exploredSmall[code] = struct{}{}
}

func (m *BitsetMap) GetUnexplored() (Subset, bool) {
	if m.dense {
		code, ok := m.unexploredDense.Any()
		if !ok {
			return nil, false
		}
		return m.decode(code), true
	}
	for code := range m.unexploredSmall {
		return m.decode(code), true
	}
	return nil, false
}

func (m *BitsetMap) GetUnexploredMax() (Subset, bool) {
	if m.dense {
		code, ok := m.unexploredDense.MaxPopcountMember()
		if !ok {
			return nil, false
		}
		return m.decode(code), true
	}
	if len(m.unexploredSmall) == 0 {
		return nil, false
	}
	best := latticebits.Code(0)
	bestPop := -1
	for code := range m.unexploredSmall {
		if p := latticebits.Popcount(code); p > bestPop {
			bestPop = p
			best = code
		}
	}
	return m.decode(best), true
}

func (m *BitsetMap) BlockDown(s Subset) {
	code := m.encode(s)
	m.moveToExplored(code)
	for _, anc := range latticebits.Ancestors(code, m.n) {
		m.moveToExplored(anc)
	}
}

func (m *BitsetMap) BlockUp(s Subset) {
	code := m.encode(s)
	m.moveToExplored(code)
	for _, desc := range latticebits.Descendants(code, m.n) {
		m.moveToExplored(desc)
	}
}

// absentBitPositions returns the zero-bit positions of code (within the
// n-bit universe) in descending order, i.e. MSB-first, matching §4.4's
// fixed iteration order contract.
func (m *BitsetMap) absentBitPositions(code latticebits.Code) []int {
	var out []int
	for i := m.n - 1; i >= 0; i-- {
		if (code>>uint(i))&1 == 0 {
			out = append(out, i)
		}
	}
	return out
}

func (m *BitsetMap) presentBitPositions(code latticebits.Code) []int {
	var out []int
	for i := m.n - 1; i >= 0; i-- {
		if (code>>uint(i))&1 == 1 {
			out = append(out, i)
		}
	}
	return out
}

// bitConstraint returns the constraint at bit position i (bit n-1-i of a
// Code corresponds to universe position i, so bit position i corresponds to
// universe position n-1-i).
func (m *BitsetMap) bitConstraint(i int) latticebits.Constraint {
	return m.universe.At(m.n - 1 - i)
}

func (m *BitsetMap) Grow(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	seedCode := m.encode(seed)

	for _, bit := range m.absentBitPositions(seedCode) {
		candidate := seedCode | (1 << uint(bit))

		if sat, ok := m.explicitSat(candidate); ok {
			if sat == latticenode.SatSat {
				seedCode = candidate
			}
			continue
		}

		ok, err := o.CheckSat(m.decode(candidate))
		if err != nil {
			return nil, oracle.Wrap(m.decode(candidate), err)
		}
		if ok {
			seedCode = candidate
		}
		if cfg.updateIntermediate {
			count, qual := 0, latticenode.Exact
			if ok {
				count, qual = 1, latticenode.AtLeast
			}
			if uerr := m.getOrInsert(candidate).UpdateNumPWs(count, qual); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMSS {
		m.mss[seedCode] = struct{}{}
	}
	return m.decode(seedCode), nil
}

func (m *BitsetMap) Shrink(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	seedCode := m.encode(seed)

	for _, bit := range m.presentBitPositions(seedCode) {
		candidate := seedCode &^ (1 << uint(bit))

		if sat, ok := m.explicitSat(candidate); ok {
			if sat == latticenode.SatUnsat {
				seedCode = candidate
			}
			continue
		}

		ok, err := o.CheckSat(m.decode(candidate))
		if err != nil {
			return nil, oracle.Wrap(m.decode(candidate), err)
		}
		if !ok {
			seedCode = candidate
		}
		if cfg.updateIntermediate {
			count, qual := 1, latticenode.AtLeast
			if !ok {
				count, qual = 0, latticenode.Exact
			}
			if uerr := m.getOrInsert(candidate).UpdateNumPWs(count, qual); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMUS {
		m.mus[seedCode] = struct{}{}
	}
	return m.decode(seedCode), nil
}

func (m *BitsetMap) GrowAmbiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	seedCode := m.encode(seed)

	for _, bit := range m.absentBitPositions(seedCode) {
		candidate := seedCode | (1 << uint(bit))

		if amb, ok := m.explicitAmbiguity(candidate); ok {
			if amb == latticenode.Ambiguous {
				seedCode = candidate
			}
			continue
		}

		amb, err := o.CheckAmbiguity(m.decode(candidate))
		if err != nil {
			return nil, oracle.Wrap(m.decode(candidate), err)
		}
		if amb == latticenode.Ambiguous {
			seedCode = candidate
		}
		if cfg.updateIntermediate {
			if uerr := applyAmbiguityHint(m.getOrInsert(candidate), amb); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMAS {
		m.mas[seedCode] = struct{}{}
	}
	return m.decode(seedCode), nil
}

func (m *BitsetMap) ShrinkUnambiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	seedCode := m.encode(seed)

	for _, bit := range m.presentBitPositions(seedCode) {
		candidate := seedCode &^ (1 << uint(bit))

		if amb, ok := m.explicitAmbiguity(candidate); ok {
			if amb == latticenode.Unambiguous {
				seedCode = candidate
			}
			continue
		}

		amb, err := o.CheckAmbiguity(m.decode(candidate))
		if err != nil {
			return nil, oracle.Wrap(m.decode(candidate), err)
		}
		if amb == latticenode.Unambiguous {
			seedCode = candidate
		}
		if cfg.updateIntermediate {
			if uerr := applyAmbiguityHint(m.getOrInsert(candidate), amb); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMUAS {
		m.muas[seedCode] = struct{}{}
	}
	return m.decode(seedCode), nil
}

// applyAmbiguityHint maps a four-valued ambiguity result to the num_pws
// hint described in §4.4: ambiguous -> (2, atleast), unambiguous ->
// (1, exact), unsat -> (0, exact).
func applyAmbiguityHint(r *latticenode.Record, amb latticenode.Ambiguity) error {
	switch amb {
	case latticenode.Ambiguous:
		return r.UpdateNumPWs(2, latticenode.AtLeast)
	case latticenode.Unambiguous:
		return r.UpdateNumPWs(1, latticenode.Exact)
	case latticenode.AmbiguitySatUnsat:
		return r.UpdateNumPWs(0, latticenode.Exact)
	default:
		return nil
	}
}

func (m *BitsetMap) codesToSubsets(codes map[latticebits.Code]struct{}) []Subset {
	out := make([]Subset, 0, len(codes))
	for code := range codes {
		out = append(out, m.decode(code))
	}
	sort.Slice(out, func(i, j int) bool {
		return m.encode(out[i]) < m.encode(out[j])
	})
	return out
}

func (m *BitsetMap) MSS() []Subset  { return m.codesToSubsets(m.mss) }
func (m *BitsetMap) MUS() []Subset  { return m.codesToSubsets(m.mus) }
func (m *BitsetMap) MAS() []Subset  { return m.codesToSubsets(m.mas) }
func (m *BitsetMap) MUAS() []Subset { return m.codesToSubsets(m.muas) }

var _ Map = (*BitsetMap)(nil)
