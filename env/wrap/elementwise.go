package wrap

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Elementwise widens a concretely-typed Environment[S, O, A, F] into
// Environment[S, space.Element, space.Element, F]: observations are
// boxed into space.Element on the way out, actions are unboxed back to
// A (via a type assertion, the same runtime narrowing qlearning/bandit
// already apply to a step's Action field) on the way in.
//
// Every agent package in this module (random, qlearning, bandit,
// actorcritic) is written directly against space.Element rather than
// generic O/A type parameters, since their observation/action-space
// capabilities (space.Finite, space.FeatureEncoder, space.Sampler) are
// themselves space.Element-typed. A concretely-typed Environment (e.g.
// env/bandit.DeterministicBandit, built so meta.Env's own type
// parameters stay concrete and test-legible) cannot satisfy
// Environment[S, space.Element, space.Element, F] directly, since Go's
// generic interfaces are invariant in O and A — this wrapper is the
// single adapter point, grounded on this package's own
// VisibleStepLimit decorator shape, rather than changing every
// environment or every agent's typing to match the other.
type Elementwise[S, O, A, F any] struct {
	Inner env.Environment[S, O, A, F]
}

func NewElementwise[S, O, A, F any](inner env.Environment[S, O, A, F]) *Elementwise[S, O, A, F] {
	return &Elementwise[S, O, A, F]{Inner: inner}
}

func (w *Elementwise[S, O, A, F]) InitialState(rng *rand.Rand) S {
	return w.Inner.InitialState(rng)
}

func (w *Elementwise[S, O, A, F]) Observe(s S, rng *rand.Rand) space.Element {
	return w.Inner.Observe(s, rng)
}

func (w *Elementwise[S, O, A, F]) Step(
	s S, a space.Element, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[S], F) {
	return w.Inner.Step(s, a.(A), rng, logger)
}

func (w *Elementwise[S, O, A, F]) Structure() env.Structure {
	return w.Inner.Structure()
}
