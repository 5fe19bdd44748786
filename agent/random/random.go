// Package random implements the null agent: an Actor that samples
// uniformly from its action space and an Agent whose BatchUpdate is a
// no-op. Structurally the simplest agent shape in this module — mirrors
// the simplest concrete agent
// (agent/linear/discrete/qlearning/QLearning.go) minus everything that
// actually learns, the own worked example for the Actor/Agent
// split.
package random

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
)

// Actor samples an action uniformly from Space on every step.
type Actor struct {
	Space space.Sampler
}

func (a Actor) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }

func (a Actor) Act(state agent.EpisodeState, obs space.Element, rng *rand.Rand) (space.Element, agent.EpisodeState) {
	return a.Space.Sample(rng), nil
}

// Agent wraps Actor into the full agent.Agent contract: Buffer returns a
// minimally sized SliceHistory and BatchUpdate discards whatever it is
// given, since a uniform-random policy has nothing to learn.
type Agent struct {
	ActionSpace space.Sampler
	Bound       buffer.DataBound
}

func New(actionSpace space.Sampler) *Agent {
	return &Agent{ActionSpace: actionSpace, Bound: buffer.DataBound{MinSteps: 1, SlackSteps: 0}}
}

func (a *Agent) Actor(mode agent.Mode) agent.Actor[space.Element, space.Element] {
	return Actor{Space: a.ActionSpace}
}

func (a *Agent) MinUpdateSize() buffer.DataBound { return a.Bound }

func (a *Agent) Buffer() buffer.History[space.Element, space.Element, float64] {
	return buffer.NewSliceHistory[space.Element, space.Element, float64](a.Bound)
}

func (a *Agent) BatchUpdate(
	buffers []buffer.History[space.Element, space.Element, float64],
	logger stats.Logger,
) error {
	for _, b := range buffers {
		b.Drain()
	}
	return nil
}
