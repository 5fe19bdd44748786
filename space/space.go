// Package space implements the typed space algebra: a set-with-structure
// abstraction used to describe observation, action, and feedback domains.
//
// The space trait family is organized as small capability interfaces, not
// an inheritance hierarchy — a concrete space implements whichever subset
// applies, and generic algorithms request the minimum capability they need,
// rather than every space carrying one fixed struct of every possible
// capability.
package space

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/arborrl/corerl/dist"
)

// Element is a value belonging to a Space. Concrete spaces document the
// concrete Go type they expect (int, float64, bool, []Element for
// products, etc.); Contains and friends type-assert against it.
type Element = any

// Space is the root capability: containment testing. Every space
// satisfies this.
type Space interface {
	// Contains reports whether x is a member of the space.
	Contains(x Element) bool
}

// Sampler is a space that can draw random elements.
type Sampler interface {
	Space
	Sample(rng *rand.Rand) Element
}

// Finite is a space with a known size and a bijection to {0..n-1}.
type Finite interface {
	Space
	Size() int
	ToIndex(x Element) int
	// FromIndex returns the element at index i, or ok=false if i is out
	// of range — from_index never panics on an out-of-range index.
	FromIndex(i int) (x Element, ok bool)
}

// FeatureEncoder writes a space's feature encoding of an element into a
// caller-provided buffer.
type FeatureEncoder interface {
	Space
	NumFeatures() int

	// Features writes NumFeatures() values into out, which must have
	// length exactly NumFeatures(). If zeroed is true, the caller
	// guarantees out is already all zeros, letting sparse encodings
	// (e.g. one-hot) skip writing zero entries.
	Features(x Element, zeroed bool, out []float64) error

	// BatchFeatures writes the feature encoding of each element in xs
	// into the corresponding row of out, an len(xs) x NumFeatures()
	// matrix.
	BatchFeatures(xs []Element, zeroed bool, out *mat.Dense) error
}

// Distributions is a space whose elements can be the outcome of a
// parameterized distribution, e.g. for use as an action space driven by
// a policy network's output.
type Distributions interface {
	Space
	NumDistParams() int

	// Distribution builds a batch of distribution instances from a
	// batch x NumDistParams() parameter matrix, one row per batch
	// element.
	Distribution(params *mat.Dense) (dist.Batch, error)
}

// SubsetOrd is a space with a partial order given by subset inclusion.
type SubsetOrd interface {
	Space
	SubsetOf(other Space) bool
}

// NonEmpty statically marks a space as guaranteed non-empty, so that
// callers may Sample from it without first checking.
type NonEmpty interface {
	Space
	Nonempty() bool
}

// LogElement renders an element for structured logging.
type LogElement interface {
	Space
	LogString(x Element) string
}
