package constraintmap

import (
	"sort"
	"strings"

	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/internal/satenc"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticebits"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/latticenode"
	"github.com/idaks/PWE-Diagnostic-Lattice-Tool/pkg/oracle"
	"github.com/sirupsen/logrus"
)

// FrozenSubset is a canonical, comparable key for a set of constraints,
// the Go stand-in for Python's frozenset node identity used by the
// original ASP-backed map (§9 "Integer vs. frozen-set node identity").
type FrozenSubset string

func frozenKey(s Subset) FrozenSubset {
	cp := make([]string, len(s))
	for i, c := range s {
		cp[i] = string(c)
	}
	sort.Strings(cp)
	return FrozenSubset(strings.Join(cp, "\x00"))
}

func subsetSet(s Subset) map[latticebits.Constraint]struct{} {
	out := make(map[latticebits.Constraint]struct{}, len(s))
	for _, c := range s {
		out[c] = struct{}{}
	}
	return out
}

// subsetOrEqualSets reports whether a ⊆ b.
func subsetOrEqualSets(a, b map[latticebits.Constraint]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for c := range a {
		if _, ok := b[c]; !ok {
			return false
		}
	}
	return true
}

// SolverMap is the Constraint Map implementation (C5) for universes too
// large to enumerate 2^n explicitly. It keys nodes by FrozenSubset and
// delegates "pick next unexplored" to an external SAT solver
// (github.com/crillab/gophersat) over a growing CNF encoding maintained in
// encoding, per §4.5.
type SolverMap struct {
	universe *latticebits.Universe
	varOf    map[latticebits.Constraint]int // 1-indexed DIMACS variable

	nodes map[FrozenSubset]*latticenode.Record

	mss, mus, mas, muas map[FrozenSubset]Subset

	encoding []satenc.Clause

	log *logrus.Logger
}

// SolverMapOption configures a SolverMap at construction.
type SolverMapOption func(*SolverMap)

// WithSolverMapLogger overrides the default logger.
func WithSolverMapLogger(log *logrus.Logger) SolverMapOption {
	return func(m *SolverMap) { m.log = log }
}

// NewSolverMap builds a SolverMap over constraints. The initial encoding
// leaves every constraint a free choice, per §4.5.
func NewSolverMap(constraints []latticebits.Constraint, opts ...SolverMapOption) *SolverMap {
	u := latticebits.NewUniverse(constraints)
	varOf := make(map[latticebits.Constraint]int, u.Len())
	for i := 0; i < u.Len(); i++ {
		varOf[u.At(i)] = i + 1
	}

	m := &SolverMap{
		universe: u,
		varOf:    varOf,
		nodes:    make(map[FrozenSubset]*latticenode.Record),
		mss:      make(map[FrozenSubset]Subset),
		mus:      make(map[FrozenSubset]Subset),
		mas:      make(map[FrozenSubset]Subset),
		muas:     make(map[FrozenSubset]Subset),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SolverMap) NumConstraints() int { return m.universe.Len() }

func (m *SolverMap) getOrInsert(key FrozenSubset) *latticenode.Record {
	if r, ok := m.nodes[key]; ok {
		return r
	}
	r := &latticenode.Record{}
	m.nodes[key] = r
	return r
}

func (m *SolverMap) explicitSat(key FrozenSubset) (latticenode.Sat, bool) {
	r, ok := m.nodes[key]
	if !ok {
		return latticenode.SatUnknown, false
	}
	sat := r.IsSat()
	return sat, sat != latticenode.SatUnknown
}

func (m *SolverMap) explicitAmbiguity(key FrozenSubset) (latticenode.Ambiguity, bool) {
	r, ok := m.nodes[key]
	if !ok {
		return latticenode.AmbiguityUnknown, false
	}
	amb := r.IsAmbiguous()
	return amb, amb != latticenode.AmbiguityUnknown
}

// implicitSat implements §4.3's rule 2: for every M in mus_set ∪ mss_set,
// S ⊆ M implies sat and S ⊇ M implies unsat; for every M in
// mas_set ∪ muas_set, S ⊆ M implies sat.
func (m *SolverMap) implicitSat(s Subset) (latticenode.Sat, bool) {
	set := subsetSet(s)
	for _, c := range m.mus {
		cSet := subsetSet(c)
		if subsetOrEqualSets(set, cSet) {
			return latticenode.SatSat, true
		}
		if subsetOrEqualSets(cSet, set) {
			return latticenode.SatUnsat, true
		}
	}
	for _, c := range m.mss {
		cSet := subsetSet(c)
		if subsetOrEqualSets(set, cSet) {
			return latticenode.SatSat, true
		}
		if subsetOrEqualSets(cSet, set) {
			return latticenode.SatUnsat, true
		}
	}
	for _, c := range m.mas {
		if subsetOrEqualSets(set, subsetSet(c)) {
			return latticenode.SatSat, true
		}
	}
	for _, c := range m.muas {
		if subsetOrEqualSets(set, subsetSet(c)) {
			return latticenode.SatSat, true
		}
	}
	return latticenode.SatUnknown, false
}

// implicitAmbiguity implements §4.3's rule 2 for check_ambiguity, including
// the retained (conservatively-unsafe) Open Question behavior: any S ⊆ M
// for M a committed MAS or MUAS is reported ambiguous. Like implicitSat, it
// checks MAS/MUAS only for S ⊆ M and draws no conclusion from S ⊇ M
// (§9's second Open Question); for MUS/MSS it checks only S ⊇ M.
func (m *SolverMap) implicitAmbiguity(s Subset) (latticenode.Ambiguity, bool) {
	set := subsetSet(s)
	for _, c := range m.mas {
		if subsetOrEqualSets(set, subsetSet(c)) {
			return latticenode.Ambiguous, true
		}
	}
	for _, c := range m.muas {
		if subsetOrEqualSets(set, subsetSet(c)) {
			return latticenode.Ambiguous, true
		}
	}
	for _, c := range m.mus {
		if subsetOrEqualSets(subsetSet(c), set) {
			return latticenode.AmbiguitySatUnsat, true
		}
	}
	for _, c := range m.mss {
		if subsetOrEqualSets(subsetSet(c), set) {
			return latticenode.AmbiguitySatUnsat, true
		}
	}
	return latticenode.AmbiguityUnknown, false
}

// CheckSat validates s, then answers by explicit record, falling back to
// implicit lattice dominance. A dominance-derived answer is cached onto
// s's node record via Record.SetSat so later explicit lookups (and
// CheckNodeEvalState) see it directly.
func (m *SolverMap) CheckSat(s Subset) (Sat, error) {
	if err := validateSubset(m.universe, s); err != nil {
		return latticenode.SatUnknown, err
	}
	key := frozenKey(s)
	if sat, ok := m.explicitSat(key); ok {
		return sat, nil
	}
	if sat, ok := m.implicitSat(s); ok {
		if err := m.getOrInsert(key).SetSat(sat == latticenode.SatSat); err != nil {
			return latticenode.SatUnknown, err
		}
		return sat, nil
	}
	return latticenode.SatUnknown, nil
}

// CheckAmbiguity validates s, then answers by explicit record, falling
// back to implicit lattice dominance, caching a dominance-derived answer
// via Record.SetAmbiguity as CheckSat does.
func (m *SolverMap) CheckAmbiguity(s Subset) (Ambiguity, error) {
	if err := validateSubset(m.universe, s); err != nil {
		return latticenode.AmbiguityUnknown, err
	}
	key := frozenKey(s)
	if amb, ok := m.explicitAmbiguity(key); ok {
		return amb, nil
	}
	if amb, ok := m.implicitAmbiguity(s); ok {
		if err := m.getOrInsert(key).SetAmbiguity(amb); err != nil {
			return latticenode.AmbiguityUnknown, err
		}
		return amb, nil
	}
	return latticenode.AmbiguityUnknown, nil
}

func (m *SolverMap) CheckNodeNumPWs(s Subset) NumPWs {
	key := frozenKey(s)
	if r, ok := m.nodes[key]; ok {
		if pws := r.GetNumPWs(); pws.Qualifier != latticenode.QualifierUnevaluated {
			return pws
		}
	}
	if sat, ok := m.implicitSat(s); ok {
		if sat == latticenode.SatSat {
			return NumPWs{Count: 1, Qualifier: latticenode.AtLeast}
		}
		return NumPWs{Count: 0, Qualifier: latticenode.Exact}
	}
	return NumPWs{Count: -1, Qualifier: latticenode.QualifierUnevaluated}
}

func (m *SolverMap) CheckNodeEvalState(s Subset) EvalState {
	key := frozenKey(s)
	if r, ok := m.nodes[key]; ok {
		return r.EvalState()
	}
	if _, ok := m.implicitSat(s); ok {
		return latticenode.Evaluated
	}
	return latticenode.Unevaluated
}

// modelToSubset extracts the constraints whose DIMACS variable is true in
// model.
func (m *SolverMap) modelToSubset(model []bool) Subset {
	var out Subset
	for i := 0; i < m.universe.Len(); i++ {
		v := i + 1
		if v-1 < len(model) && model[v-1] {
			out = append(out, m.universe.At(i))
		}
	}
	return out
}

// GetUnexplored solves the current encoding and returns one model as a
// subset, or false if the encoding is unsatisfiable (enumeration complete:
// SolverEmpty, a normal termination signal per §7, not an error).
func (m *SolverMap) GetUnexplored() (Subset, bool) {
	res, err := satenc.Solve(m.encoding)
	if err != nil {
		m.log.WithError(err).Error("solvermap: GetUnexplored solve failed")
		return nil, false
	}
	if !res.Sat {
		return nil, false
	}
	return m.modelToSubset(res.Model), true
}

// GetUnexploredMax solves the current encoding while maximizing the number
// of constraints present, via gophersat's pseudo-boolean cost function
// (satenc.SolveMaxCardinality) rather than a manual cardinality search: the
// objective is passed alongside encoding, never appended to it, so the
// shared blocking-clause state is untouched by the optimization query.
func (m *SolverMap) GetUnexploredMax() (Subset, bool) {
	n := m.universe.Len()
	lits := make([]int, n)
	for i := 0; i < n; i++ {
		lits[i] = i + 1
	}

	res, err := satenc.SolveMaxCardinality(m.encoding, lits)
	if err != nil {
		m.log.WithError(err).Error("solvermap: GetUnexploredMax solve failed")
		return nil, false
	}
	if !res.Sat {
		return nil, false
	}
	return m.modelToSubset(res.Model), true
}

// BlockDown appends a clause forbidding every superset-or-equal of s: a
// model containing every constraint in s (and possibly more) is a
// superset, so requiring at least one member of s to be absent rules out
// exactly that family, per the Map interface's "BlockDown marks s and
// every superset of s as explored". An empty s has every subset as a
// superset, so the whole lattice is blocked via a unit contradiction.
func (m *SolverMap) BlockDown(s Subset) {
	var clause satenc.Clause
	for _, c := range s {
		clause = append(clause, -m.varOf[c])
	}
	if len(clause) > 0 {
		m.encoding = append(m.encoding, clause)
	} else {
		m.encoding = append(m.encoding, satenc.Clause{-1}, satenc.Clause{1})
	}
}

// BlockUp appends a clause forbidding every subset-or-equal of s: a model
// is a subset of s only if every constraint outside s is absent, so
// requiring at least one outside constraint to be present rules out
// exactly that family, per the Map interface's "BlockUp marks s and every
// subset of s as explored".
func (m *SolverMap) BlockUp(s Subset) {
	in := subsetSet(s)
	var clause satenc.Clause
	for i := 0; i < m.universe.Len(); i++ {
		c := m.universe.At(i)
		if _, present := in[c]; !present {
			clause = append(clause, m.varOf[c])
		}
	}
	if len(clause) > 0 {
		m.encoding = append(m.encoding, clause)
	} else {
		// s is the full universe: no constraint lies outside it, so the
		// clause would be empty (unsatisfiable); every subset is a subset of
		// s, so block the whole lattice via a unit contradiction on
		// variable 1 (which need not name a constraint when n == 0).
		m.encoding = append(m.encoding, satenc.Clause{-1}, satenc.Clause{1})
	}
}

func (m *SolverMap) Grow(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	present := subsetSet(seed)
	result := append(Subset{}, seed...)

	for i := 0; i < m.universe.Len(); i++ {
		c := m.universe.At(i)
		if _, ok := present[c]; ok {
			continue
		}
		candidate := append(append(Subset{}, result...), c)
		key := frozenKey(candidate)

		if sat, ok := m.explicitSat(key); ok {
			if sat == latticenode.SatSat {
				result = candidate
				present[c] = struct{}{}
			}
			continue
		}

		ok, err := o.CheckSat(candidate)
		if err != nil {
			return nil, oracle.Wrap(candidate, err)
		}
		if ok {
			result = candidate
			present[c] = struct{}{}
		}
		if cfg.updateIntermediate {
			count, qual := 0, latticenode.Exact
			if ok {
				count, qual = 1, latticenode.AtLeast
			}
			if uerr := m.getOrInsert(key).UpdateNumPWs(count, qual); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMSS {
		m.mss[frozenKey(result)] = result
	}
	return result, nil
}

func (m *SolverMap) Shrink(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	result := append(Subset{}, seed...)

	for _, c := range append(Subset{}, seed...) {
		candidate := removeConstraint(result, c)
		key := frozenKey(candidate)

		if sat, ok := m.explicitSat(key); ok {
			if sat == latticenode.SatUnsat {
				result = candidate
			}
			continue
		}

		ok, err := o.CheckSat(candidate)
		if err != nil {
			return nil, oracle.Wrap(candidate, err)
		}
		if !ok {
			result = candidate
		}
		if cfg.updateIntermediate {
			count, qual := 1, latticenode.AtLeast
			if !ok {
				count, qual = 0, latticenode.Exact
			}
			if uerr := m.getOrInsert(key).UpdateNumPWs(count, qual); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMUS {
		m.mus[frozenKey(result)] = result
	}
	return result, nil
}

func (m *SolverMap) GrowAmbiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	present := subsetSet(seed)
	result := append(Subset{}, seed...)

	for i := 0; i < m.universe.Len(); i++ {
		c := m.universe.At(i)
		if _, ok := present[c]; ok {
			continue
		}
		candidate := append(append(Subset{}, result...), c)
		key := frozenKey(candidate)

		if amb, ok := m.explicitAmbiguity(key); ok {
			if amb == latticenode.Ambiguous {
				result = candidate
				present[c] = struct{}{}
			}
			continue
		}

		amb, err := o.CheckAmbiguity(candidate)
		if err != nil {
			return nil, oracle.Wrap(candidate, err)
		}
		if amb == latticenode.Ambiguous {
			result = candidate
			present[c] = struct{}{}
		}
		if cfg.updateIntermediate {
			if uerr := applyAmbiguityHint(m.getOrInsert(key), amb); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMAS {
		m.mas[frozenKey(result)] = result
	}
	return result, nil
}

func (m *SolverMap) ShrinkUnambiguous(seed Subset, o oracle.Oracle, opts ...RefineOption) (Subset, error) {
	cfg := resolveOptions(opts)
	result := append(Subset{}, seed...)

	for _, c := range append(Subset{}, seed...) {
		candidate := removeConstraint(result, c)
		key := frozenKey(candidate)

		if amb, ok := m.explicitAmbiguity(key); ok {
			if amb == latticenode.Unambiguous {
				result = candidate
			}
			continue
		}

		amb, err := o.CheckAmbiguity(candidate)
		if err != nil {
			return nil, oracle.Wrap(candidate, err)
		}
		if amb == latticenode.Unambiguous {
			result = candidate
		}
		if cfg.updateIntermediate {
			if uerr := applyAmbiguityHint(m.getOrInsert(key), amb); uerr != nil {
				return nil, uerr
			}
		}
	}

	if cfg.updateMUAS {
		m.muas[frozenKey(result)] = result
	}
	return result, nil
}

func removeConstraint(s Subset, c latticebits.Constraint) Subset {
	out := make(Subset, 0, len(s))
	for _, x := range s {
		if x != c {
			out = append(out, x)
		}
	}
	return out
}

func subsetMapValues(m map[FrozenSubset]Subset) []Subset {
	out := make([]Subset, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return frozenKey(out[i]) < frozenKey(out[j])
	})
	return out
}

func (m *SolverMap) MSS() []Subset  { return subsetMapValues(m.mss) }
func (m *SolverMap) MUS() []Subset  { return subsetMapValues(m.mus) }
func (m *SolverMap) MAS() []Subset  { return subsetMapValues(m.mas) }
func (m *SolverMap) MUAS() []Subset { return subsetMapValues(m.muas) }

var _ Map = (*SolverMap)(nil)
