package wrap

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// FirstPlayerView reduces a two-player environment, whose observation
// and action spaces are space.Product pairs (one component per player),
// to the first player's component. Grounded on space.Product's
// componentwise structure: a player-view wrapper just projects a tuple
// onto one index rather than reimplementing pairing logic.
type FirstPlayerView[S, A any] struct {
	Inner env.Environment[S, []space.Element, []space.Element, []space.Element]
}

func (w *FirstPlayerView[S, A]) InitialState(rng *rand.Rand) S {
	return w.Inner.InitialState(rng)
}

func (w *FirstPlayerView[S, A]) Observe(s S, rng *rand.Rand) space.Element {
	obs := w.Inner.Observe(s, rng)
	return obs[0]
}

// Step takes the first player's action and pairs it with a Second
// player action produced by fillSecond, since the inner environment
// expects a joint action tuple. Callers compose this wrapper with a
// fixed opponent policy supplying fillSecond.
func (w *FirstPlayerView[S, A]) Step(
	s S, a space.Element, fillSecond func(S) space.Element, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[S], space.Element) {
	joint := []space.Element{a, fillSecond(s)}
	succ, feedback := w.Inner.Step(s, joint, rng, logger)
	return succ, feedback[0]
}

func (w *FirstPlayerView[S, A]) Structure() env.Structure {
	inner := w.Inner.Structure()
	return projectStructure(inner, 0)
}

// SecondPlayerView is FirstPlayerView's mirror image, projecting onto
// index 1 of the joint tuple.
type SecondPlayerView[S, A any] struct {
	Inner env.Environment[S, []space.Element, []space.Element, []space.Element]
}

func (w *SecondPlayerView[S, A]) InitialState(rng *rand.Rand) S {
	return w.Inner.InitialState(rng)
}

func (w *SecondPlayerView[S, A]) Observe(s S, rng *rand.Rand) space.Element {
	obs := w.Inner.Observe(s, rng)
	return obs[1]
}

func (w *SecondPlayerView[S, A]) Step(
	s S, a space.Element, fillFirst func(S) space.Element, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[S], space.Element) {
	joint := []space.Element{fillFirst(s), a}
	succ, feedback := w.Inner.Step(s, joint, rng, logger)
	return succ, feedback[1]
}

func (w *SecondPlayerView[S, A]) Structure() env.Structure {
	inner := w.Inner.Structure()
	return projectStructure(inner, 1)
}

func projectStructure(s env.Structure, index int) env.Structure {
	proj := func(sp space.Space) space.Space {
		p, ok := sp.(*space.Product)
		if !ok {
			return sp
		}
		return p.Components[index]
	}
	return env.Structure{
		Observation: proj(s.Observation),
		Action:      proj(s.Action),
		Feedback:    proj(s.Feedback),
		Discount:    s.Discount,
	}
}
