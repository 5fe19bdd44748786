// Package env implements the pure-function environment protocol: the
// Structure description of an environment's spaces, and the
// Environment interface itself.
//
// State ownership transfers to the caller instead of being held
// in-place behind a Reset/Step pair: this package's Environment is a
// pure description of dynamics over an explicit state
// value S, with the caller (package meta, buffer, trainer) threading
// state across steps. This is the change needed to let a MetaEnv nest
// an inner environment's state inside its own without aliasing it.
package env

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Structure describes the spaces an Environment's observations, actions,
// and feedback live in, plus its discount factor. Grounded on
// environment.Spec, generalized from a single flat
// Cardinality/bound pair into the space algebra's composable Space
// values.
type Structure struct {
	Observation space.Space
	Action      space.Space
	Feedback    space.Space
	Discount    float64
}

// Environment is the pure-function contract of an environment's
// dynamics over an explicit state type S, observation type O, action
// type A, and feedback type F.
//
// Implementations must not retain mutable state between calls beyond
// what is passed in and returned: InitialState produces a state value,
// Observe derives an observation from a state without mutating it, and
// Step computes a (successor, feedback) pair from a state and action
// without mutating either. This mirrors the small verb-named
// method set (Start/Step/AtGoal) while removing the implicit
// current-TimeStep field the Environment carries.
type Environment[S, O, A, F any] interface {
	// InitialState draws a starting state.
	InitialState(rng *rand.Rand) S

	// Observe derives the observation a caller should see for state s.
	Observe(s S, rng *rand.Rand) O

	// Step advances state s by taking action a, returning the successor
	// state (Continue/Terminate/Interrupt) and feedback received. logger
	// may be nil; implementations that want to record structured
	// internals should guard every call with a nil check exactly as
	// package stats' own callers do.
	Step(s S, a A, rng *rand.Rand, logger stats.Logger) (timestep.Successor[S], F)

	// Structure describes this environment's spaces and discount.
	Structure() Structure
}
