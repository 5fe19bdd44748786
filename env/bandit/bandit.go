// Package bandit implements bandit-family environments: the simplest
// possible Environment instances, used as the scenario-1 and
// scenario-3 end-to-end fixtures.
//
// Grounded in spirit on the tabular QLearning_test.go fixtures,
// which build small finite test environments inline instead of pulling
// in a library one.
package bandit

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// DeterministicBandit is a single-state, multi-arm bandit: every episode
// is one step, pulling arm a yields Rewards[a] and then terminates.
type DeterministicBandit struct {
	Rewards []float64
}

// NewDeterministicBandit builds a bandit with the given per-arm rewards.
func NewDeterministicBandit(rewards []float64) *DeterministicBandit {
	return &DeterministicBandit{Rewards: rewards}
}

// InitialState is the bandit's single state: 0 (there is nothing to
// vary between episodes).
func (b *DeterministicBandit) InitialState(rng *rand.Rand) int { return 0 }

func (b *DeterministicBandit) Observe(s int, rng *rand.Rand) int { return 0 }

func (b *DeterministicBandit) Step(
	s int, a int, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[int], float64) {
	if a < 0 || a >= len(b.Rewards) {
		panic("bandit: DeterministicBandit.Step: action out of range")
	}
	if logger != nil {
		logger.Log(stats.MustId("arm"), stats.Index(a, len(b.Rewards)))
	}
	return timestep.NewTerminate[int](), b.Rewards[a]
}

func (b *DeterministicBandit) Structure() env.Structure {
	obs, _ := space.NewFinite([]int{0})
	return env.Structure{
		Observation: obs,
		Action:      space.NewIndex(len(b.Rewards)),
		Feedback:    space.NewInterval(-1e300, 1e300),
		Discount:    1.0,
	}
}

// OneHotBandits is an EnvDistribution (package meta) over
// DeterministicBandits whose best arm is one-hot encoded by the
// sampled task: exactly one arm pays Reward, the rest pay 0. Grounded
// on the scenario-3 meta-learning fixture, which needs a
// distribution of tasks distinguishable only by which arm is best.
type OneHotBandits struct {
	NumArms int
	Reward  float64
}

func NewOneHotBandits(numArms int, reward float64) *OneHotBandits {
	return &OneHotBandits{NumArms: numArms, Reward: reward}
}

// SampleEnvironment draws a uniformly random best arm and returns the
// bandit that pays Reward on that arm only.
func (d *OneHotBandits) SampleEnvironment(rng *rand.Rand) env.Environment[int, int, int, float64] {
	best := rng.Intn(d.NumArms)
	rewards := make([]float64, d.NumArms)
	rewards[best] = d.Reward
	return NewDeterministicBandit(rewards)
}
