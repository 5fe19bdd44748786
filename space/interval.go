package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arborrl/corerl/dist"
)

// Interval is the closed space [lo, hi] over the reals, lo <= hi, where
// lo/hi may be ±Inf (open at infinity). Grounded on the use of
// gonum.org/v1/gonum/spatial/r1.Interval as its own bounds type
// (environment/UniformStarter.go), reused directly rather than
// reinvented.
type Interval struct {
	Bound r1.Interval
}

// NewInterval builds an Interval space. It panics if lo > hi, matching
// the convention of panicking on malformed specs
// (environment/Spec.go's NewSpec).
func NewInterval(lo, hi float64) *Interval {
	if lo > hi {
		panic(fmt.Sprintf("space: NewInterval: lo %v > hi %v", lo, hi))
	}
	return &Interval{Bound: r1.Interval{Min: lo, Max: hi}}
}

func (s *Interval) Contains(x Element) bool {
	v, ok := x.(float64)
	return ok && v >= s.Bound.Min && v <= s.Bound.Max
}

func (s *Interval) Nonempty() bool { return true } // lo <= hi always holds

// Sample draws from: uniform if bounded both sides, a half-shifted
// exponential if one-sided, standard normal if unbounded on both
// sides — per the space algebra's sampling rule for Interval.
func (s *Interval) Sample(rng *rand.Rand) Element {
	lo, hi := s.Bound.Min, s.Bound.Max
	loInf, hiInf := math.IsInf(lo, -1), math.IsInf(hi, 1)

	switch {
	case !loInf && !hiInf:
		return lo + rng.Float64()*(hi-lo)
	case loInf && hiInf:
		return rng.NormFloat64()
	case hiInf: // lo finite, hi = +Inf
		exp := distuv.Exponential{Rate: 1, Src: rng}
		return lo + exp.Rand()
	default: // hi finite, lo = -Inf
		exp := distuv.Exponential{Rate: 1, Src: rng}
		return hi - exp.Rand()
	}
}

func (s *Interval) NumFeatures() int { return 1 }

// Features is the identity encoding: the single feature is the value
// itself.
func (s *Interval) Features(x Element, zeroed bool, out []float64) error {
	if len(out) != 1 {
		return fmt.Errorf("space: Interval.Features: out has length %d, want 1", len(out))
	}
	v, ok := x.(float64)
	if !ok {
		return fmt.Errorf("space: Interval.Features: %v is not a float64", x)
	}
	out[0] = v
	return nil
}

func (s *Interval) BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error {
	rows, cols := out.Dims()
	if rows != len(xs) || cols != 1 {
		return fmt.Errorf("space: Interval.BatchFeatures: out is %dx%d, want %dx1",
			rows, cols, len(xs))
	}
	for r, x := range xs {
		v, ok := x.(float64)
		if !ok {
			return fmt.Errorf("space: Interval.BatchFeatures: row %d: %v is not a float64", r, x)
		}
		out.Set(r, 0, v)
	}
	return nil
}

// SubsetOf reports [a,b] ⊆ [c,d] ⇔ c <= a ∧ b <= d.
func (s *Interval) SubsetOf(other Space) bool {
	o, ok := other.(*Interval)
	if !ok {
		return false
	}
	return o.Bound.Min <= s.Bound.Min && s.Bound.Max <= o.Bound.Max
}

func (s *Interval) LogString(x Element) string {
	return fmt.Sprintf("%v", x)
}

// NumDistParams is 2: a mean and a log-std, parameterizing a scalar
// diagonal Gaussian (clipped in expectation to the interval's bounds by
// the agent, not by this space).
func (s *Interval) NumDistParams() int { return 2 }

func (s *Interval) Distribution(params *mat.Dense) (dist.Batch, error) {
	rows, cols := params.Dims()
	if cols != 2 {
		return nil, fmt.Errorf("space: Interval.Distribution: params is %dx%d, want %dx2", rows, cols)
	}
	rowParams := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		rowParams[r] = mat.Row(nil, r, params)
	}
	return dist.NewDiagNormal(rowParams)
}
