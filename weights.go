package qcec

import "math"

// DefaultTolerance is the numeric tolerance used when comparing edge
// weights. Two weights closer than this are considered equal during
// normalization and unique-table lookup. Loosening it merges more nodes at
// the risk of false equivalence; tightening it risks diagram blow-up from
// near-duplicate nodes that are never merged.
const DefaultTolerance = 1e-13

// weightTable interns floating-point values so that semantically equal
// weights are represented by the exact same bits. Canonical weights make
// node identity a pure structural comparison: equal sub-diagrams always
// hash to the same unique-table entry.
//
// Values are bucketed on a grid with the tolerance as spacing. A lookup
// probes the home bucket and both neighbors, so values within tolerance of
// each other can never end up as distinct entries.
type weightTable struct {
	tol     float64
	buckets map[int64][]float64
}

func newWeightTable(tol float64) *weightTable {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &weightTable{
		tol:     tol,
		buckets: make(map[int64][]float64),
	}
}

// lookupFloat returns the canonical representative for v, registering v as
// a new representative if no existing entry lies within tolerance.
func (t *weightTable) lookupFloat(v float64) float64 {
	if math.Abs(v) <= t.tol {
		return 0
	}
	if math.Abs(v-1) <= t.tol {
		return 1
	}
	if math.Abs(v+1) <= t.tol {
		return -1
	}
	home := int64(math.Round(v / t.tol))
	for _, d := range [3]int64{0, -1, 1} {
		for _, c := range t.buckets[home+d] {
			if math.Abs(c-v) <= t.tol {
				return c
			}
		}
	}
	t.buckets[home] = append(t.buckets[home], v)
	return v
}

// lookup interns both components of a complex weight.
func (t *weightTable) lookup(w complex128) complex128 {
	return complex(t.lookupFloat(real(w)), t.lookupFloat(imag(w)))
}

func (t *weightTable) approxEqual(a, b complex128) bool {
	return math.Abs(real(a)-real(b)) <= t.tol &&
		math.Abs(imag(a)-imag(b)) <= t.tol
}

func (t *weightTable) approxZero(w complex128) bool {
	return t.approxEqual(w, 0)
}

func (t *weightTable) approxOne(w complex128) bool {
	return t.approxEqual(w, 1)
}

func (t *weightTable) entries() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}
