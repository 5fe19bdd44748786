// Package wrap implements environment wrappers: small decorators over an
// env.Environment that adjust its successor semantics or reduce its
// spaces, without altering the wrapped environment's own dynamics.
//
// Grounded on the environment/StepLimitEnder.go and
// environment/IntervalLimitEnder.go, which convert a step-count
// threshold into an episode-ending condition; generalized here from a
// boolean "ended" flag into the Interrupt successor, since a step
// limit cuts an episode short without claiming the true dynamics
// terminated.
package wrap

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// stepLimitState pairs an inner state with the number of steps taken so
// far in the current episode.
type stepLimitState[S any] struct {
	inner S
	steps int
}

// VisibleStepLimit wraps an environment so that after MaxSteps calls to
// Step within one episode, the successor is forced to Interrupt instead
// of whatever the inner environment produced, carrying the inner
// successor's state forward. A Terminate from the inner environment is
// never overridden.
type VisibleStepLimit[S, O, A, F any] struct {
	Inner    env.Environment[S, O, A, F]
	MaxSteps int
}

func NewVisibleStepLimit[S, O, A, F any](inner env.Environment[S, O, A, F], maxSteps int) *VisibleStepLimit[S, O, A, F] {
	return &VisibleStepLimit[S, O, A, F]{Inner: inner, MaxSteps: maxSteps}
}

func (w *VisibleStepLimit[S, O, A, F]) InitialState(rng *rand.Rand) stepLimitState[S] {
	return stepLimitState[S]{inner: w.Inner.InitialState(rng), steps: 0}
}

func (w *VisibleStepLimit[S, O, A, F]) Observe(s stepLimitState[S], rng *rand.Rand) O {
	return w.Inner.Observe(s.inner, rng)
}

func (w *VisibleStepLimit[S, O, A, F]) Step(
	s stepLimitState[S], a A, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[stepLimitState[S]], F) {
	succ, feedback := w.Inner.Step(s.inner, a, rng, logger)
	steps := s.steps + 1

	switch succ.Kind() {
	case timestep.Terminate:
		return timestep.NewTerminate[stepLimitState[S]](), feedback
	default:
		next, _ := succ.State()
		nextState := stepLimitState[S]{inner: next, steps: steps}
		if steps >= w.MaxSteps {
			return timestep.NewInterrupt(nextState), feedback
		}
		if succ.Kind() == timestep.Interrupt {
			return timestep.NewInterrupt(nextState), feedback
		}
		return timestep.NewContinue(nextState), feedback
	}
}

func (w *VisibleStepLimit[S, O, A, F]) Structure() env.Structure {
	return w.Inner.Structure()
}
