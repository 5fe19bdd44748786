package space

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Product is the Cartesian product of a sequence of component spaces.
// Elements are []Element tuples of matching length. Capabilities are
// derived componentwise: Product is Finite iff every component is
// Finite, a FeatureEncoder iff every component is, and so on — the
// same derivation-by-construction rule the algebra applies to every
// composite space.
//
// Grounded on the multi-dimensional Cardinality handling in
// environment/Spec.go, generalized from a flat dimension count into a
// genuine nested product of heterogeneous component spaces.
type Product struct {
	Components []Space
}

func NewProduct(components ...Space) *Product {
	return &Product{Components: components}
}

func (p *Product) tuple(x Element) ([]Element, bool) {
	t, ok := x.([]Element)
	if !ok || len(t) != len(p.Components) {
		return nil, false
	}
	return t, true
}

func (p *Product) Contains(x Element) bool {
	t, ok := p.tuple(x)
	if !ok {
		return false
	}
	for i, c := range p.Components {
		if !c.Contains(t[i]) {
			return false
		}
	}
	return true
}

func (p *Product) Nonempty() bool {
	for _, c := range p.Components {
		ne, ok := c.(NonEmpty)
		if ok && !ne.Nonempty() {
			return false
		}
	}
	return true
}

// Size is the product of the component sizes. Panics if any component
// is not Finite; callers should check via a type assertion to Finite
// first.
func (p *Product) Size() int {
	size := 1
	for _, c := range p.Components {
		f, ok := c.(Finite)
		if !ok {
			panic("space: Product.Size: component is not Finite")
		}
		size *= f.Size()
	}
	return size
}

// ToIndex encodes the tuple in row-major order:
// index = ((i1*n2+i2)*n3+i3)*...+ik.
func (p *Product) ToIndex(x Element) int {
	t, ok := p.tuple(x)
	if !ok {
		return -1
	}
	index := 0
	for i, c := range p.Components {
		f, ok := c.(Finite)
		if !ok {
			return -1
		}
		ci := f.ToIndex(t[i])
		if ci < 0 {
			return -1
		}
		index = index*f.Size() + ci
	}
	return index
}

func (p *Product) FromIndex(i int) (Element, bool) {
	n := len(p.Components)
	sizes := make([]int, n)
	for k, c := range p.Components {
		f, ok := c.(Finite)
		if !ok {
			return nil, false
		}
		sizes[k] = f.Size()
	}
	indices := make([]int, n)
	rem := i
	for k := n - 1; k >= 0; k-- {
		if sizes[k] == 0 {
			return nil, false
		}
		indices[k] = rem % sizes[k]
		rem /= sizes[k]
	}
	if rem != 0 {
		return nil, false
	}
	tuple := make([]Element, n)
	for k, c := range p.Components {
		f := c.(Finite)
		e, ok := f.FromIndex(indices[k])
		if !ok {
			return nil, false
		}
		tuple[k] = e
	}
	return tuple, true
}

// Sample draws each component independently.
func (p *Product) Sample(rng *rand.Rand) Element {
	tuple := make([]Element, len(p.Components))
	for i, c := range p.Components {
		s, ok := c.(Sampler)
		if !ok {
			panic("space: Product.Sample: component is not a Sampler")
		}
		tuple[i] = s.Sample(rng)
	}
	return tuple
}

// NumFeatures is the sum of the component feature counts. Panics if any
// component is not a FeatureEncoder.
func (p *Product) NumFeatures() int {
	n := 0
	for _, c := range p.Components {
		fe, ok := c.(FeatureEncoder)
		if !ok {
			panic("space: Product.NumFeatures: component is not a FeatureEncoder")
		}
		n += fe.NumFeatures()
	}
	return n
}

// Features is the concatenation of the componentwise feature vectors.
func (p *Product) Features(x Element, zeroed bool, out []float64) error {
	want := p.NumFeatures()
	if len(out) != want {
		return fmt.Errorf("space: Product.Features: out has length %d, want %d", len(out), want)
	}
	t, ok := p.tuple(x)
	if !ok {
		return fmt.Errorf("space: Product.Features: %v is not a matching tuple", x)
	}
	off := 0
	for i, c := range p.Components {
		fe := c.(FeatureEncoder)
		n := fe.NumFeatures()
		if err := fe.Features(t[i], zeroed, out[off:off+n]); err != nil {
			return fmt.Errorf("space: Product.Features: component %d: %w", i, err)
		}
		off += n
	}
	return nil
}

func (p *Product) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	want := p.NumFeatures()
	if rows != len(xs) || cols != want {
		return fmt.Errorf("space: Product.BatchFeatures: out is %dx%d, want %dx%d",
			rows, cols, len(xs), want)
	}
	row := make([]float64, want)
	for r, x := range xs {
		if err := p.Features(x, zeroed, row); err != nil {
			return fmt.Errorf("space: Product.BatchFeatures: row %d: %w", r, err)
		}
		out.SetRow(r, row)
	}
	return nil
}

func (p *Product) LogString(x Element) string {
	t, ok := p.tuple(x)
	if !ok {
		return fmt.Sprintf("%v", x)
	}
	s := "("
	for i, c := range p.Components {
		if i > 0 {
			s += ", "
		}
		if le, ok := c.(LogElement); ok {
			s += le.LogString(t[i])
		} else {
			s += fmt.Sprintf("%v", t[i])
		}
	}
	return s + ")"
}

// SubsetOf holds componentwise: every component of p must be a subset
// of the corresponding component of other.
func (p *Product) SubsetOf(other Space) bool {
	op, ok := other.(*Product)
	if !ok || len(op.Components) != len(p.Components) {
		return false
	}
	for i, c := range p.Components {
		ord, ok := c.(SubsetOrd)
		if !ok {
			return false
		}
		if !ord.SubsetOf(op.Components[i]) {
			return false
		}
	}
	return true
}
