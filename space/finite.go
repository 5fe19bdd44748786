package space

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/arborrl/corerl/dist"
)

// Finite_ is a finite space enumerated as an explicit slice of elements,
// bijective with {0..len(elems)-1} in slice order. Comparable elements
// are required so containment/indexing can use a lookup map; callers
// needing non-comparable elements should define a dedicated space.
//
// Grounded on the environment.Cardinality discrete case,
// generalized from a fixed tabular Q-learning index convention
// (agent/linear/discrete/qlearning) into a general enumerable space.
type Finite_[E comparable] struct {
	elems []E
	index map[E]int
}

// NewFinite builds a finite space from an explicit, distinct element
// enumeration. The element at position i has ToIndex(elems[i]) == i.
func NewFinite[E comparable](elems []E) (*Finite_[E], error) {
	index := make(map[E]int, len(elems))
	for i, e := range elems {
		if _, dup := index[e]; dup {
			return nil, fmt.Errorf("space: NewFinite: duplicate element %v", e)
		}
		index[e] = i
	}
	return &Finite_[E]{elems: elems, index: index}, nil
}

func (f *Finite_[E]) Contains(x Element) bool {
	e, ok := x.(E)
	if !ok {
		return false
	}
	_, ok = f.index[e]
	return ok
}

func (f *Finite_[E]) Size() int { return len(f.elems) }

func (f *Finite_[E]) ToIndex(x Element) int {
	e, ok := x.(E)
	if !ok {
		return -1
	}
	i, ok := f.index[e]
	if !ok {
		return -1
	}
	return i
}

func (f *Finite_[E]) FromIndex(i int) (Element, bool) {
	if i < 0 || i >= len(f.elems) {
		return nil, false
	}
	return f.elems[i], true
}

func (f *Finite_[E]) Sample(rng *rand.Rand) Element {
	return f.elems[rng.Intn(len(f.elems))]
}

func (f *Finite_[E]) Nonempty() bool { return len(f.elems) > 0 }

// NumFeatures returns the one-hot feature length, equal to Size().
func (f *Finite_[E]) NumFeatures() int { return len(f.elems) }

// Features writes the one-hot encoding of x into out.
func (f *Finite_[E]) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != f.NumFeatures() {
		return fmt.Errorf("space: Finite.Features: out has length %d, want %d",
			len(out), f.NumFeatures())
	}
	if !zeroed {
		for i := range out {
			out[i] = 0
		}
	}
	i := f.ToIndex(x)
	if i < 0 {
		return fmt.Errorf("space: Finite.Features: %v is not in the space", x)
	}
	out[i] = 1
	return nil
}

func (f *Finite_[E]) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != f.NumFeatures() {
		return fmt.Errorf("space: Finite.BatchFeatures: out is %dx%d, want %dx%d",
			rows, cols, len(xs), f.NumFeatures())
	}
	row := make([]float64, cols)
	for r, x := range xs {
		if err := f.Features(x, zeroed, row); err != nil {
			return fmt.Errorf("space: Finite.BatchFeatures: row %d: %w", r, err)
		}
		out.SetRow(r, row)
		if !zeroed {
			for i := range row {
				row[i] = 0
			}
		}
	}
	return nil
}

func (f *Finite_[E]) LogString(x Element) string {
	return fmt.Sprintf("%v", x)
}

// NumDistParams is one logit per element — a finite space's natural
// parameterization is Categorical.
func (f *Finite_[E]) NumDistParams() int { return len(f.elems) }

func (f *Finite_[E]) Distribution(params *mat.Dense) (dist.Batch, error) {
	rows, cols := params.Dims()
	if cols != f.NumFeatures() {
		return nil, fmt.Errorf("space: Finite.Distribution: params is %dx%d, want %dx%d",
			rows, cols, rows, f.NumFeatures())
	}
	logits := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		logits[r] = mat.Row(nil, r, params)
	}
	return dist.NewCategorical(logits), nil
}

// SubsetOf reports whether every element of f is contained in other.
func (f *Finite_[E]) SubsetOf(other Space) bool {
	for _, e := range f.elems {
		if !other.Contains(e) {
			return false
		}
	}
	return true
}

// Index is the finite space whose elements are exactly their own index
// in {0..n-1}. Grounded on the plain integer action spaces
// (e.g. agent/linear/discrete/qlearning's tabular action indices).
type Index struct {
	n int
}

// NewIndex builds an Index space of size n.
func NewIndex(n int) *Index {
	if n < 0 {
		n = 0
	}
	return &Index{n: n}
}

func (s *Index) Contains(x Element) bool {
	i, ok := x.(int)
	return ok && i >= 0 && i < s.n
}

func (s *Index) Size() int { return s.n }

func (s *Index) ToIndex(x Element) int {
	i, ok := x.(int)
	if !ok || i < 0 || i >= s.n {
		return -1
	}
	return i
}

func (s *Index) FromIndex(i int) (Element, bool) {
	if i < 0 || i >= s.n {
		return nil, false
	}
	return i, true
}

func (s *Index) Sample(rng *rand.Rand) Element {
	return rng.Intn(s.n)
}

func (s *Index) Nonempty() bool { return s.n > 0 }

func (s *Index) NumFeatures() int { return s.n }

func (s *Index) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != s.n {
		return fmt.Errorf("space: Index.Features: out has length %d, want %d", len(out), s.n)
	}
	if !zeroed {
		for i := range out {
			out[i] = 0
		}
	}
	i, ok := x.(int)
	if !ok || i < 0 || i >= s.n {
		return fmt.Errorf("space: Index.Features: %v is not in the space", x)
	}
	out[i] = 1
	return nil
}

func (s *Index) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != s.n {
		return fmt.Errorf("space: Index.BatchFeatures: out is %dx%d, want %dx%d",
			rows, cols, len(xs), s.n)
	}
	row := make([]float64, cols)
	for r, x := range xs {
		if err := s.Features(x, zeroed, row); err != nil {
			return fmt.Errorf("space: Index.BatchFeatures: row %d: %w", r, err)
		}
		out.SetRow(r, row)
		if !zeroed {
			for i := range row {
				row[i] = 0
			}
		}
	}
	return nil
}

func (s *Index) LogString(x Element) string {
	return fmt.Sprintf("%v", x)
}

func (s *Index) NumDistParams() int { return s.n }

func (s *Index) Distribution(params *mat.Dense) (dist.Batch, error) {
	rows, cols := params.Dims()
	if cols != s.n {
		return nil, fmt.Errorf("space: Index.Distribution: params is %dx%d, want %dx%d",
			rows, cols, rows, s.n)
	}
	logits := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		logits[r] = mat.Row(nil, r, params)
	}
	return dist.NewCategorical(logits), nil
}

func (s *Index) SubsetOf(other Space) bool {
	for i := 0; i < s.n; i++ {
		if !other.Contains(i) {
			return false
		}
	}
	return true
}
