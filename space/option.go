package space

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// OptionValue is the element type of an Option space: either None, or
// Some wrapping an inner element.
type OptionValue struct {
	Some  bool
	Value Element
}

// None is the absent value of an Option space.
func None() OptionValue { return OptionValue{} }

// Some wraps a present value of an Option space.
func Some(x Element) OptionValue { return OptionValue{Some: true, Value: x} }

// Option is the space None ∪ Some(x) for x ∈ Inner. Grounded on the
// spec's need for a "maybe absent" observation (the observation space of
// a MetaEnv is partly optional — see package meta) expressed the way the
// rest of this package expresses composite spaces: a small wrapping
// struct deriving capabilities from its Inner space.
type Option struct {
	Inner Space
}

func (o Option) Contains(x Element) bool {
	v, ok := x.(OptionValue)
	if !ok {
		return false
	}
	if !v.Some {
		return true
	}
	return o.Inner.Contains(v.Value)
}

func (o Option) Nonempty() bool { return true } // None is always present

func (o Option) Sample(rng *rand.Rand) Element {
	s, ok := o.Inner.(Sampler)
	if !ok {
		panic("space: Option.Sample: inner space is not a Sampler")
	}
	// Uniform over {None} ∪ Inner via a coin flip; this is a reasonable
	// default sampling convention for Option and is not prescribed more
	// precisely by the algebra.
	if rng.Float64() < 0.5 {
		return None()
	}
	return Some(s.Sample(rng))
}

// NumFeatures is 1 (a presence flag) plus the inner space's features,
// with the inner features left at 0 when absent.
func (o Option) NumFeatures() int {
	fe, ok := o.Inner.(FeatureEncoder)
	if !ok {
		return 1
	}
	return 1 + fe.NumFeatures()
}

func (o Option) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != o.NumFeatures() {
		return fmt.Errorf("space: Option.Features: out has length %d, want %d",
			len(out), o.NumFeatures())
	}
	if !zeroed {
		for i := range out {
			out[i] = 0
		}
	}
	v, ok := x.(OptionValue)
	if !ok {
		return fmt.Errorf("space: Option.Features: %v is not an OptionValue", x)
	}
	if !v.Some {
		return nil
	}
	out[0] = 1
	fe, ok := o.Inner.(FeatureEncoder)
	if !ok {
		return nil
	}
	return fe.Features(v.Value, true, out[1:])
}

func (o Option) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != o.NumFeatures() {
		return fmt.Errorf("space: Option.BatchFeatures: out is %dx%d, want %dx%d",
			rows, cols, len(xs), o.NumFeatures())
	}
	row := make([]float64, cols)
	for r, x := range xs {
		if err := o.Features(x, false, row); err != nil {
			return fmt.Errorf("space: Option.BatchFeatures: row %d: %w", r, err)
		}
		out.SetRow(r, row)
	}
	return nil
}

func (o Option) LogString(x Element) string {
	v, ok := x.(OptionValue)
	if !ok || !v.Some {
		return "None"
	}
	if le, ok := o.Inner.(LogElement); ok {
		return fmt.Sprintf("Some(%s)", le.LogString(v.Value))
	}
	return fmt.Sprintf("Some(%v)", v.Value)
}

func (o Option) SubsetOf(other Space) bool {
	oo, ok := other.(Option)
	if !ok {
		return false
	}
	ord, ok := o.Inner.(SubsetOrd)
	if !ok {
		return false
	}
	return ord.SubsetOf(oo.Inner)
}
