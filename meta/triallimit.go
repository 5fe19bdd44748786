package meta

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// trialState pairs an Env's own state with the number of inner
// episodes completed so far in the outer trial.
type trialState[S, O, A, F any] struct {
	inner    innerEnvState[S, O, A, F]
	episodes int
}

// TrialLimit wraps an Env so that after MaxEpisodes completed inner
// episodes, the outer episode is Interrupted. Grounded on the same
// countdown-to-interrupt pattern as
// environment/IntervalLimitEnder.go, applied here to inner-episode
// counts instead of step counts.
type TrialLimit[S, O, A, F any] struct {
	Env         *Env[S, O, A, F]
	MaxEpisodes int
}

func NewTrialLimit[S, O, A, F any](e *Env[S, O, A, F], maxEpisodes int) *TrialLimit[S, O, A, F] {
	return &TrialLimit[S, O, A, F]{Env: e, MaxEpisodes: maxEpisodes}
}

func (w *TrialLimit[S, O, A, F]) InitialState(rng *rand.Rand) trialState[S, O, A, F] {
	return trialState[S, O, A, F]{inner: w.Env.InitialState(rng), episodes: 0}
}

func (w *TrialLimit[S, O, A, F]) Observe(s trialState[S, O, A, F], rng *rand.Rand) Observation[O, A, F] {
	return w.Env.Observe(s.inner, rng)
}

func (w *TrialLimit[S, O, A, F]) Step(
	s trialState[S, O, A, F], a A, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[trialState[S, O, A, F]], F) {
	succ, feedback := w.Env.Step(s.inner, a, rng, logger)
	next, _ := succ.State()

	episodes := s.episodes
	if next.state.EpisodeDone {
		episodes++
	}

	result := trialState[S, O, A, F]{inner: next, episodes: episodes}
	if episodes >= w.MaxEpisodes {
		return timestep.NewInterrupt(result), feedback
	}
	return timestep.NewContinue(result), feedback
}

func (w *TrialLimit[S, O, A, F]) Structure() env.Structure {
	return w.Env.Structure()
}
