package latticebits

import "github.com/bits-and-blooms/bitset"

// DenseCodeSet is a dense bitset over [0, 2^n), indexed directly by subset
// Code. BitsetMap uses it instead of a map[Code]struct{} for explored/
// unexplored bookkeeping once n grows large enough (§5: "implementations
// SHOULD use a dense bitset over [0, 2^n) rather than a hash set when n >=
// 20") that per-entry map overhead would dominate.
type DenseCodeSet struct {
	bits *bitset.BitSet
}

// NewDenseCodeSet builds a DenseCodeSet sized for an n-bit universe.
func NewDenseCodeSet(n int) *DenseCodeSet {
	return &DenseCodeSet{bits: bitset.New(uint(1) << uint(n))}
}

// NewFullDenseCodeSet builds a DenseCodeSet with every code in [0, 2^n) set.
func NewFullDenseCodeSet(n int) *DenseCodeSet {
	s := NewDenseCodeSet(n)
	size := uint(1) << uint(n)
	for i := uint(0); i < size; i++ {
		s.bits.Set(i)
	}
	return s
}

// Has reports whether code is a member.
func (s *DenseCodeSet) Has(code Code) bool { return s.bits.Test(uint(code)) }

// Add inserts code.
func (s *DenseCodeSet) Add(code Code) { s.bits.Set(uint(code)) }

// Remove deletes code.
func (s *DenseCodeSet) Remove(code Code) { s.bits.Clear(uint(code)) }

// Len returns the number of members.
func (s *DenseCodeSet) Len() int { return int(s.bits.Count()) }

// Any returns an arbitrary member and true, or false if the set is empty.
// The spec explicitly permits returning any valid element.
func (s *DenseCodeSet) Any() (Code, bool) {
	i, ok := s.bits.NextSet(0)
	if !ok {
		return 0, false
	}
	return Code(i), true
}

// MaxPopcountMember returns the member with the largest Popcount, breaking
// ties arbitrarily, or false if the set is empty.
func (s *DenseCodeSet) MaxPopcountMember() (Code, bool) {
	best := Code(0)
	bestPop := -1
	found := false
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		found = true
		c := Code(i)
		if p := Popcount(c); p > bestPop {
			bestPop = p
			best = c
		}
	}
	if !found {
		return 0, false
	}
	return best, true
}
