// Package metaagent implements ResettingMetaAgent, which lifts any
// agent.Agent to act on a meta.Env's outer observation space by
// rebuilding a fresh inner agent at the start of every trial and
// letting it learn online, one inner transition at a time.
//
// Grounded on original_source/src/agents/meta.rs's ResettingMetaAgent,
// ported into this package's Agent/Actor shape.
package metaagent

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/meta"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Factory builds a fresh inner agent at the start of every trial, seeded
// from the rng InitialState was given so repeated trials within one run
// are independent but reproducible from the outer run's seed.
type Factory[S, O, A, F any] func(rng *rand.Rand) agent.Agent[S, O, A, F]

// ResettingMetaAgent wraps a Factory of inner agents: every outer
// episode (one meta.Env trial) rebuilds the inner agent from scratch and
// lets it learn online across the trial's inner transitions, one
// BatchUpdate call per step, rather than batching a trial's steps for a
// later update. meta.rs's act() rebuilds self.agent on new_episode and
// calls self.agent.update() once per step inline; InitialState/Act here
// map directly onto that rebuild-per-trial boundary, and BatchUpdate is
// a no-op because the meta level itself never learns (meta.rs's own
// ResettingMetaAgent::update is empty, "Does not learn on a meta
// level").
//
// ActorMode is ignored: meta.rs's SetActorMode impl for
// ResettingMetaAgent has no fields either, so toggling outer mode never
// changes behaviour — a meta-learning agent's entire purpose is the
// within-trial online learning, so the wrapped inner actor is always
// built in agent.Train mode regardless of what mode the outer caller
// requested.
type ResettingMetaAgent[S, O, A, F any] struct {
	Factory     Factory[S, O, A, F]
	ActionSpace space.Sampler
	Bound       buffer.DataBound
}

func New[S, O, A, F any](factory Factory[S, O, A, F], actionSpace space.Sampler) *ResettingMetaAgent[S, O, A, F] {
	return &ResettingMetaAgent[S, O, A, F]{
		Factory:     factory,
		ActionSpace: actionSpace,
		Bound:       buffer.DataBound{MinSteps: 1, SlackSteps: 0},
	}
}

// episodeState is the per-trial state carried across Act calls: the
// fresh inner agent and actor built for this trial, the inner actor's
// own per-(inner)-episode state, and enough of the previous outer step
// to reconstruct the inner transition once its successor observation
// arrives.
type episodeState[S, O, A, F any] struct {
	inner           agent.Agent[S, O, A, F]
	innerActor      agent.Actor[O, A]
	innerState      agent.EpisodeState
	prevObs         space.OptionValue // Option[O]
	prevEpisodeDone bool
}

type metaActor[S, O, A, F any] struct {
	agent *ResettingMetaAgent[S, O, A, F]
}

func (a metaActor[S, O, A, F]) InitialState(rng *rand.Rand) agent.EpisodeState {
	inner := a.agent.Factory(rng)
	innerActor := inner.Actor(agent.Train)
	return &episodeState[S, O, A, F]{
		inner:           inner,
		innerActor:      innerActor,
		innerState:      innerActor.InitialState(rng),
		prevObs:         space.None(),
		prevEpisodeDone: true,
	}
}

func (a metaActor[S, O, A, F]) Act(
	state agent.EpisodeState, obs meta.Observation[O, A, F], rng *rand.Rand,
) (A, agent.EpisodeState) {
	st := state.(*episodeState[S, O, A, F])

	if st.prevObs.Some && obs.PrevStep.Some {
		a.applyInnerStep(st, obs)
	}

	var action A
	if obs.InnerObs.Some {
		if st.prevEpisodeDone {
			st.innerState = st.innerActor.InitialState(rng)
		}
		innerObs := obs.InnerObs.Value.(O)
		action, st.innerState = st.innerActor.Act(st.innerState, innerObs, rng)
	} else {
		// No inner observation: the inner episode just ended and no
		// fresh one has started. The chosen action is never executed
		// against the inner environment, so any element of the action
		// space is correct; matches meta.rs's some_element() fallback.
		action = a.agent.ActionSpace.Sample(rng).(A)
	}

	st.prevObs = obs.InnerObs
	st.prevEpisodeDone = obs.EpisodeDone
	return action, st
}

// applyInnerStep reconstructs the inner transition straddling the
// previous and current outer observations and feeds it to the inner
// agent's own BatchUpdate as a single-step batch, the online-update
// analogue of meta.rs's self.agent.update(step, ...) call.
func (a metaActor[S, O, A, F]) applyInnerStep(st *episodeState[S, O, A, F], obs meta.Observation[O, A, F]) {
	prev := st.prevObs.Value.(O)
	stepPair := obs.PrevStep.Value.(meta.PrevStepPair[A, F])

	var kind timestep.Kind
	var interruptState O
	switch {
	case obs.InnerObs.Some && !obs.EpisodeDone:
		kind = timestep.Continue
	case obs.InnerObs.Some && obs.EpisodeDone:
		kind = timestep.Interrupt
		interruptState = obs.InnerObs.Value.(O)
	case !obs.InnerObs.Some && obs.EpisodeDone:
		kind = timestep.Terminate
	default:
		panic("metaagent: an inner observation must be present whenever the inner episode continues")
	}

	history := buffer.NewSliceHistory[O, A, F](buffer.DataBound{MinSteps: 1, SlackSteps: 0})
	history.Push(timestep.PartialStep[O, A, F]{
		Observation:    prev,
		Action:         stepPair.Action,
		Feedback:       stepPair.Feedback,
		NextKind:       kind,
		InterruptState: interruptState,
	})
	// The error return has nowhere to surface mid-rollout; every inner
	// agent this package is exercised with (qlearning, bandit) never
	// returns one.
	_ = st.inner.BatchUpdate([]buffer.History[O, A, F]{history}, nil)
}

func (a *ResettingMetaAgent[S, O, A, F]) Actor(mode agent.Mode) agent.Actor[meta.Observation[O, A, F], A] {
	return metaActor[S, O, A, F]{agent: a}
}

func (a *ResettingMetaAgent[S, O, A, F]) MinUpdateSize() buffer.DataBound { return a.Bound }

func (a *ResettingMetaAgent[S, O, A, F]) Buffer() buffer.History[meta.Observation[O, A, F], A, F] {
	return buffer.NewSliceHistory[meta.Observation[O, A, F], A, F](a.Bound)
}

// BatchUpdate is a no-op: the meta level never learns, only the inner
// agent rebuilt each trial does (see applyInnerStep).
func (a *ResettingMetaAgent[S, O, A, F]) BatchUpdate(
	buffers []buffer.History[meta.Observation[O, A, F], A, F],
	logger stats.Logger,
) error {
	for _, b := range buffers {
		b.Drain()
	}
	return nil
}
