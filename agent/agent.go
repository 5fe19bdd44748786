// Package agent defines the Actor/Agent role split: an Actor only selects
// actions (the hot loop a worker runs against the environment); an Agent
// owns the buffer an Actor's experience is recorded into and the batch
// update that improves the Actor. Grounded on the
// agent.Agent/Learner/Policy split (agent/Agent.go), generalized from one
// combined interface with mat.Vector-typed actions and a tightly coupled
// VM into two role interfaces over the generic O/A/F types the rest of
// this module uses, since a parallel Trainer (§4.G) needs many Actors
// sharing one Agent's weights without each carrying its own copy of the
// update logic.
package agent

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/stats"
)

// Mode selects which of an Agent's actors to hand out: the one used for
// learning (which must record experience into the Agent's buffer) or the
// one used for evaluation (which need not, and typically acts greedily).
// Adapts the Policy.Eval()/Train()/IsEval() flag into an
// explicit argument to Actor, since a parallel Trainer needs distinct
// Actor values per worker rather than one Policy whose mode is toggled
// out from under other goroutines using it.
type Mode int

const (
	Train Mode = iota
	Eval
)

// EpisodeState is an opaque value an Actor carries across the steps of
// one episode (e.g. nothing, for a memoryless policy; a carried RNN
// hidden state, for a recurrent one). Actor implementations define their
// own concrete state type; callers never inspect it.
type EpisodeState any

// Actor selects actions given an observation. It is the only interface a
// Trainer worker goroutine touches during rollout collection — an Actor
// must not mutate any state shared with other Actors obtained from the
// same Agent, since many workers may hold one concurrently (see §4.G).
type Actor[O, A any] interface {
	// InitialState returns the per-episode state to carry into the
	// first Act call of a new episode.
	InitialState(rng *rand.Rand) EpisodeState

	// Act selects an action given the current per-episode state and
	// observation, returning the action and the state to carry into
	// the next step.
	Act(state EpisodeState, obs O, rng *rand.Rand) (A, EpisodeState)
}

// Agent owns the learned weights an Actor acts from, the buffer its
// experience accumulates into, and the batch update that improves those
// weights. Adapts a Learner.Step()/Observe()/ObserveFirst()/
// EndEpisode() sequence, generalized from one fixed per-transition
// update into the batched BatchUpdate over however many
// buffer.History values the Trainer collected this round (possibly one
// per worker).
type Agent[S, O, A, F any] interface {
	// Actor returns an Actor for the given mode. Implementations may
	// return the same value for every call (a stateless policy reading
	// shared weights) or a fresh value per call.
	Actor(mode Mode) Actor[O, A]

	// MinUpdateSize reports how much experience BatchUpdate needs
	// before it is worth calling, and how much slack a worker may
	// collect past that before being forced to stop (see
	// buffer.DataBound).
	MinUpdateSize() buffer.DataBound

	// Buffer returns a fresh history buffer sized to MinUpdateSize, for
	// a worker to record its rollout into.
	Buffer() buffer.History[O, A, F]

	// BatchUpdate consumes the drained contents of however many
	// buffers a training round collected and performs one learning
	// step.
	BatchUpdate(buffers []buffer.History[O, A, F], logger stats.Logger) error
}
