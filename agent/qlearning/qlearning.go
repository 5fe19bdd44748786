// Package qlearning implements tabular Q-Learning over a Finite
// observation space and a Finite action space. Adapts
// agent/linear/discrete/qlearning/QLearner.go's update rule
// (Q[o,a] <- (1-alpha)Q[o,a] + alpha(r + gamma*maxNextQ)), generalized
// from the single `done bool` (which always either bootstraps
// or doesn't) to the Continue/Terminate/Interrupt successor rule: only
// Terminate drops the bootstrap term, Interrupt still bootstraps from
// the bucket the cutoff observation maps to.
package qlearning

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Table is the shared Q[observation][action] estimate an Actor reads
// from and BatchUpdate writes to. Kept as a plain slice-of-slices rather
// than a *mat.Dense: QLearner.go's weights are a mat.Dense because its
// features are arbitrary vectors; a tabular Finite x Finite agent's
// "features" are just an index, so a direct 2D slice with one row per
// observation and one column per action is the simpler analogue of its
// per-action weight matrix.
type Table [][]float64

func NewTable(numObs, numActions int) Table {
	t := make(Table, numObs)
	for i := range t {
		t[i] = make([]float64, numActions)
	}
	return t
}

func (t Table) maxNext(obs int) float64 {
	max := math.Inf(-1)
	for _, v := range t[obs] {
		if v > max {
			max = v
		}
	}
	return max
}

func (t Table) argmax(obs int, rng *rand.Rand) int {
	row := t[obs]
	best := []int{0}
	for a := 1; a < len(row); a++ {
		switch {
		case row[a] > row[best[0]]:
			best = []int{a}
		case row[a] == row[best[0]]:
			best = append(best, a)
		}
	}
	return best[rng.Intn(len(best))]
}

// Actor is an epsilon-greedy policy reading a shared Table: random with
// probability Epsilon, greedy (ties broken uniformly) otherwise.
// Grounded on agent/linear/discrete/policy/EGreedy.go's behaviour-policy
// role in QLearning.go's New.
type Actor struct {
	Table       Table
	NumActions  int
	Epsilon     float64
	Observation space.Finite
}

func (a Actor) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }

func (a Actor) Act(state agent.EpisodeState, obs space.Element, rng *rand.Rand) (space.Element, agent.EpisodeState) {
	o := a.Observation.ToIndex(obs)
	if rng.Float64() < a.Epsilon {
		return rng.Intn(a.NumActions), nil
	}
	return a.Table.argmax(o, rng), nil
}

// Agent is the tabular Q-Learning agent: BatchUpdate performs one pass
// of the Q-Learner's per-step weight update over every packed step of
// every buffer it is given.
type Agent struct {
	Table        Table
	Observation  space.Finite
	NumActions   int
	LearningRate float64
	Gamma        float64
	Epsilon      float64
	Bound        buffer.DataBound
}

func New(observation space.Finite, numActions int, learningRate, gamma, epsilon float64) *Agent {
	return &Agent{
		Table:        NewTable(observation.Size(), numActions),
		Observation:  observation,
		NumActions:   numActions,
		LearningRate: learningRate,
		Gamma:        gamma,
		Epsilon:      epsilon,
		Bound:        buffer.DataBound{MinSteps: 1, SlackSteps: 0},
	}
}

func (a *Agent) Actor(mode agent.Mode) agent.Actor[space.Element, space.Element] {
	epsilon := a.Epsilon
	if mode == agent.Eval {
		epsilon = 0
	}
	return Actor{Table: a.Table, NumActions: a.NumActions, Epsilon: epsilon, Observation: a.Observation}
}

func (a *Agent) MinUpdateSize() buffer.DataBound { return a.Bound }

func (a *Agent) Buffer() buffer.History[space.Element, space.Element, float64] {
	return buffer.NewSliceHistory[space.Element, space.Element, float64](a.Bound)
}

func (a *Agent) BatchUpdate(
	buffers []buffer.History[space.Element, space.Element, float64],
	logger stats.Logger,
) error {
	var tdErrorSum float64
	var n int
	for _, buf := range buffers {
		steps := buf.Drain()
		for i, step := range steps {
			o := a.Observation.ToIndex(step.Observation)
			act := step.Action.(int)
			reward := step.Feedback

			target := reward
			switch step.NextKind {
			case timestep.Terminate:
				// no bootstrap term
			case timestep.Interrupt:
				nextObs := a.Observation.ToIndex(step.InterruptState)
				target += a.Gamma * a.Table.maxNext(nextObs)
			case timestep.Continue:
				// The continuing successor's observation is not
				// stored on this step (see timestep.PartialStep); it
				// is the next step's Observation. A buffer cut off
				// mid-episode ends in a Continue step with no next
				// step, and that step is skipped.
				if i+1 >= len(steps) {
					continue
				}
				nextObs := a.Observation.ToIndex(steps[i+1].Observation)
				target += a.Gamma * a.Table.maxNext(nextObs)
			}

			current := a.Table[o][act]
			tdError := target - current
			a.Table[o][act] = current + a.LearningRate*tdError

			tdErrorSum += tdError * tdError
			n++
		}
	}
	if logger != nil && n > 0 {
		logger.Log(stats.MustId("qlearning/mean_squared_td_error"), stats.Scalar(tdErrorSum/float64(n)))
	}
	return nil
}
