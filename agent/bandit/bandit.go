// Package bandit implements two per-observation multi-armed bandit
// agents over a Finite observation space and Finite action space: UCB1
// and Thompson sampling with a Beta prior. BetaThompson is grounded
// on original_source/src/agents/bandits/thompson_sampling.rs's
// Beta(1,1)-prior/posterior-sample-argmax semantics, re-expressed in the
// Config+New+SelectAction idiom
// (agent/linear/discrete/policy/EGreedy.go is the nearest existing shape
// for a per-observation arm-statistics policy).
package bandit

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
)

func argmax(values []float64, rng *rand.Rand) int {
	best := []int{0}
	for i := 1; i < len(values); i++ {
		switch {
		case values[i] > values[best[0]]:
			best = []int{i}
		case values[i] == values[best[0]]:
			best = append(best, i)
		}
	}
	return best[rng.Intn(len(best))]
}

// UCB1 selects the action maximizing mean(o,a) + c*sqrt(ln(N(o))/n(o,a)),
// pulling every unpulled action once per observation before the bound
// applies (the standard UCB1 initialization, since ln(0)/0 is
// undefined).
type UCB1 struct {
	Observation space.Finite
	NumActions  int
	C           float64

	counts [][]float64
	sums   [][]float64
	totals []float64
	Bound  buffer.DataBound
}

func NewUCB1(observation space.Finite, numActions int, c float64) *UCB1 {
	n := observation.Size()
	u := &UCB1{
		Observation: observation,
		NumActions:  numActions,
		C:           c,
		counts:      make([][]float64, n),
		sums:        make([][]float64, n),
		totals:      make([]float64, n),
		Bound:       buffer.DataBound{MinSteps: 1, SlackSteps: 0},
	}
	for i := range u.counts {
		u.counts[i] = make([]float64, numActions)
		u.sums[i] = make([]float64, numActions)
	}
	return u
}

type ucb1Actor struct{ agent *UCB1 }

func (a ucb1Actor) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }

func (a ucb1Actor) Act(state agent.EpisodeState, obs space.Element, rng *rand.Rand) (space.Element, agent.EpisodeState) {
	o := a.agent.Observation.ToIndex(obs)
	for act := 0; act < a.agent.NumActions; act++ {
		if a.agent.counts[o][act] == 0 {
			return act, nil
		}
	}
	scores := make([]float64, a.agent.NumActions)
	for act := range scores {
		mean := a.agent.sums[o][act] / a.agent.counts[o][act]
		bonus := a.agent.C * math.Sqrt(math.Log(a.agent.totals[o])/a.agent.counts[o][act])
		scores[act] = mean + bonus
	}
	return argmax(scores, rng), nil
}

func (u *UCB1) Actor(mode agent.Mode) agent.Actor[space.Element, space.Element] {
	return ucb1Actor{agent: u}
}

func (u *UCB1) MinUpdateSize() buffer.DataBound { return u.Bound }

func (u *UCB1) Buffer() buffer.History[space.Element, space.Element, float64] {
	return buffer.NewSliceHistory[space.Element, space.Element, float64](u.Bound)
}

func (u *UCB1) BatchUpdate(buffers []buffer.History[space.Element, space.Element, float64], logger stats.Logger) error {
	for _, buf := range buffers {
		for _, step := range buf.Drain() {
			o := u.Observation.ToIndex(step.Observation)
			act := step.Action.(int)
			u.counts[o][act]++
			u.sums[o][act] += step.Feedback
			u.totals[o]++
		}
	}
	return nil
}

// BetaThompson is a Thompson-sampling bandit with a Beta(1,1) prior on
// the probability a pull's reward exceeds RewardThreshold: each act()
// draws NumSamples posterior samples per action and selects the action
// with the greatest sampled sum. Direct adaptation of
// thompson_sampling.rs's BetaThompsonSamplingAgent.
type BetaThompson struct {
	Observation     space.Finite
	NumActions      int
	RewardThreshold float64
	NumSamples      int

	highCounts [][]float64 // alpha - 1
	lowCounts  [][]float64 // beta - 1
	Bound      buffer.DataBound
}

func NewBetaThompson(observation space.Finite, numActions int, rewardMin, rewardMax float64, numSamples int) *BetaThompson {
	n := observation.Size()
	b := &BetaThompson{
		Observation:     observation,
		NumActions:      numActions,
		RewardThreshold: (rewardMin + rewardMax) / 2,
		NumSamples:      numSamples,
		highCounts:      make([][]float64, n),
		lowCounts:       make([][]float64, n),
		Bound:           buffer.DataBound{MinSteps: 1, SlackSteps: 0},
	}
	for i := range b.highCounts {
		b.highCounts[i] = make([]float64, numActions)
		b.lowCounts[i] = make([]float64, numActions)
	}
	return b
}

type betaThompsonActor struct{ agent *BetaThompson }

func (a betaThompsonActor) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }

func (a betaThompsonActor) Act(state agent.EpisodeState, obs space.Element, rng *rand.Rand) (space.Element, agent.EpisodeState) {
	o := a.agent.Observation.ToIndex(obs)
	scores := make([]float64, a.agent.NumActions)
	for act := range scores {
		beta := distuv.Beta{
			Alpha: a.agent.highCounts[o][act] + 1,
			Beta:  a.agent.lowCounts[o][act] + 1,
			Src:   rng,
		}
		sum := 0.0
		for i := 0; i < a.agent.NumSamples; i++ {
			sum += beta.Rand()
		}
		scores[act] = sum
	}
	return argmax(scores, rng), nil
}

func (b *BetaThompson) Actor(mode agent.Mode) agent.Actor[space.Element, space.Element] {
	return betaThompsonActor{agent: b}
}

func (b *BetaThompson) MinUpdateSize() buffer.DataBound { return b.Bound }

func (b *BetaThompson) Buffer() buffer.History[space.Element, space.Element, float64] {
	return buffer.NewSliceHistory[space.Element, space.Element, float64](b.Bound)
}

func (b *BetaThompson) BatchUpdate(buffers []buffer.History[space.Element, space.Element, float64], logger stats.Logger) error {
	for _, buf := range buffers {
		for _, step := range buf.Drain() {
			o := b.Observation.ToIndex(step.Observation)
			act := step.Action.(int)
			if step.Feedback > b.RewardThreshold {
				b.highCounts[o][act]++
			} else {
				b.lowCounts[o][act]++
			}
		}
	}
	return nil
}
