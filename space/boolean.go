package space

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/arborrl/corerl/dist"
)

// Boolean is the two-element space {false, true}.
type Boolean struct{}

func (Boolean) Contains(x Element) bool { _, ok := x.(bool); return ok }
func (Boolean) Nonempty() bool          { return true }
func (Boolean) Size() int               { return 2 }

func (Boolean) ToIndex(x Element) int {
	b, ok := x.(bool)
	if !ok {
		return -1
	}
	if b {
		return 1
	}
	return 0
}

func (Boolean) FromIndex(i int) (Element, bool) {
	switch i {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return nil, false
	}
}

func (Boolean) Sample(rng *rand.Rand) Element { return rng.Intn(2) == 1 }

func (Boolean) NumFeatures() int { return 1 }

func (Boolean) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != 1 {
		return fmt.Errorf("space: Boolean.Features: out has length %d, want 1", len(out))
	}
	b, ok := x.(bool)
	if !ok {
		return fmt.Errorf("space: Boolean.Features: %v is not a bool", x)
	}
	if b {
		out[0] = 1
	} else {
		out[0] = 0
	}
	return nil
}

func (s Boolean) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != 1 {
		return fmt.Errorf("space: Boolean.BatchFeatures: out is %dx%d, want %dx1",
			rows, cols, len(xs))
	}
	for r, x := range xs {
		var v [1]float64
		if err := s.Features(x, zeroed, v[:]); err != nil {
			return fmt.Errorf("space: Boolean.BatchFeatures: row %d: %w", r, err)
		}
		out.Set(r, 0, v[0])
	}
	return nil
}

func (Boolean) LogString(x Element) string { return fmt.Sprintf("%v", x) }

func (Boolean) SubsetOf(other Space) bool {
	return other.Contains(false) && other.Contains(true)
}

// NumDistParams is one logit — Boolean's natural parameterization is
// Bernoulli.
func (Boolean) NumDistParams() int { return 1 }

func (Boolean) Distribution(params *mat.Dense) (dist.Batch, error) {
	rows, cols := params.Dims()
	if cols != 1 {
		return nil, fmt.Errorf("space: Boolean.Distribution: params is %dx%d, want %dx1", rows, cols)
	}
	logits := make([]float64, rows)
	for r := 0; r < rows; r++ {
		logits[r] = params.At(r, 0)
	}
	return dist.NewBernoulli(logits), nil
}

// Singleton is the one-element space {Elem}.
type Singleton struct {
	Elem Element
}

func (s Singleton) Contains(x Element) bool { return x == s.Elem }
func (s Singleton) Nonempty() bool          { return true }
func (s Singleton) Size() int               { return 1 }
func (s Singleton) ToIndex(x Element) int {
	if x == s.Elem {
		return 0
	}
	return -1
}
func (s Singleton) FromIndex(i int) (Element, bool) {
	if i == 0 {
		return s.Elem, true
	}
	return nil, false
}
func (s Singleton) Sample(rng *rand.Rand) Element { return s.Elem }
func (s Singleton) NumFeatures() int              { return 0 }
func (s Singleton) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != 0 {
		return fmt.Errorf("space: Singleton.Features: out has length %d, want 0", len(out))
	}
	return nil
}
func (s Singleton) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != 0 {
		return fmt.Errorf("space: Singleton.BatchFeatures: out is %dx%d, want %dx0", rows, cols, len(xs))
	}
	return nil
}
func (s Singleton) LogString(x Element) string { return fmt.Sprintf("%v", x) }
func (s Singleton) SubsetOf(other Space) bool  { return other.Contains(s.Elem) }
