// Package meta implements the meta-learning environment wrapper: an
// EnvDistribution of inner environments, and meta.Env, which turns
// repeated episodes of a sampled inner environment into one outer
// episode whose observation exposes the agent's own recent history.
//
// Grounded on original_source/src/envs/meta.rs, the ported source of
// truth for the step semantics below.
package meta

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// EnvDistribution samples a concrete environment at the start of each
// outer episode — the meta-learning task distribution.
type EnvDistribution[S, O, A, F any] interface {
	SampleEnvironment(rng *rand.Rand) env.Environment[S, O, A, F]
}

// Feedback is the capability an inner feedback type must have to be
// used inside a MetaEnv: it must decompose into an inner reward signal
// (passed to the agent as ordinary reward) and an outer meta-level
// signal (accumulated across the whole trial), and it must supply a
// neutral value for steps that take no inner step (the step after each
// inner episode ends, which starts the next inner episode).
type Feedback[F any] interface {
	// Split returns the (inner, outer) decomposition of this feedback.
	Split() (inner F, outer F)
	// NeutralOuter is the outer feedback value to report on a step that
	// discards the action and starts a new inner episode.
	NeutralOuter() F
}

// RewardFeedback is the diagonal Feedback instance: a plain float64
// reward is both its own inner and outer signal.
type RewardFeedback float64

func (r RewardFeedback) Split() (inner, outer RewardFeedback) { return r, r }
func (RewardFeedback) NeutralOuter() RewardFeedback            { return 0 }

// State is a meta-environment's state: the wrapped inner environment's
// own state, the Kind of its most recent successor (so Step can tell,
// on the *next* call, whether the inner episode it is about to act in
// has already ended and needs resampling instead), and the (action,
// feedback) pair from the previous real inner transition (carried so
// the agent's next observation can include it, per the
// recurrent-history design of meta-learning agents; absent at the
// start of every inner episode).
type State[S, O, A any] struct {
	Inner       S
	InnerKind   timestep.Kind
	PrevAction  space.OptionValue // Option[PrevStepPair[A, F]]
	EpisodeDone bool
}

// Observation is what the agent actually sees at each outer step: the
// current inner observation (absent exactly when the most recent inner
// step terminated; the next Step call starts a fresh inner episode, so
// with one-step inner episodes InnerObs is absent on every other outer
// step), the previous step's
// (action, feedback) pair, and whether the inner episode most recently
// ended.
type Observation[O, A, F any] struct {
	InnerObs    space.OptionValue // Option[O]
	PrevStep    space.OptionValue // Option[(A, F)]
	EpisodeDone bool
}

// PrevStepPair is the concrete payload carried inside Observation's
// PrevStep when present.
type PrevStepPair[A, F any] struct {
	Action   A
	Feedback F
}

// Env wraps an EnvDistribution, resampling a fresh inner environment at
// the start of every outer episode (i.e. InitialState) and exposing the
// inner interaction, plus a record of the agent's own previous action
// and feedback, as the outer observation.
type Env[S, O, A, F any] struct {
	Dist EnvDistribution[S, O, A, F]
}

func NewEnv[S, O, A, F any](dist EnvDistribution[S, O, A, F]) *Env[S, O, A, F] {
	return &Env[S, O, A, F]{Dist: dist}
}

// innerEnvState bundles a sampled inner environment together with the
// State value threaded across outer steps; Go's lack of existential
// types means the sampled env.Environment must travel alongside State
// rather than being looked up by type each step.
type innerEnvState[S, O, A, F any] struct {
	inner env.Environment[S, O, A, F]
	state State[S, O, A]
}

func (e *Env[S, O, A, F]) InitialState(rng *rand.Rand) innerEnvState[S, O, A, F] {
	inner := e.Dist.SampleEnvironment(rng)
	s0 := inner.InitialState(rng)
	return innerEnvState[S, O, A, F]{
		inner: inner,
		state: State[S, O, A]{
			Inner:       s0,
			InnerKind:   timestep.Continue,
			PrevAction:  space.None(),
			EpisodeDone: false,
		},
	}
}

func (e *Env[S, O, A, F]) Observe(s innerEnvState[S, O, A, F], rng *rand.Rand) Observation[O, A, F] {
	innerObs := e.innerObservation(s, rng)
	return Observation[O, A, F]{
		InnerObs:    innerObs,
		PrevStep:    s.state.PrevAction, // Option carrying the (action, feedback) pair if present
		EpisodeDone: s.state.EpisodeDone,
	}
}

func (e *Env[S, O, A, F]) innerObservation(s innerEnvState[S, O, A, F], rng *rand.Rand) space.OptionValue {
	if s.state.InnerKind == timestep.Terminate {
		return space.None()
	}
	return space.Some(s.inner.Observe(s.state.Inner, rng))
}

// splitFeedback decomposes f into its (inner, outer) parts via the
// Feedback capability when F implements it; types that don't (e.g. a
// plain float64 reward used directly, without wrapping in
// RewardFeedback) fall back to the diagonal split RewardFeedback itself
// uses: the same value is both its own inner and outer signal.
func splitFeedback[F any](f F) (inner, outer F) {
	if fb, ok := any(f).(Feedback[F]); ok {
		return fb.Split()
	}
	return f, f
}

// neutralOuter returns F's neutral outer value via the Feedback
// capability when F implements it, falling back to F's zero value
// otherwise (the same value RewardFeedback.NeutralOuter itself
// returns).
func neutralOuter[F any]() F {
	var zero F
	if fb, ok := any(zero).(Feedback[F]); ok {
		return fb.NeutralOuter()
	}
	return zero
}

// Step implements the two-call inner-episode boundary: a Step call
// whose incoming state still has InnerKind == Continue actually steps
// the inner environment with the caller's action; a Step call whose
// incoming state carries a non-Continue InnerKind (stored by the
// *previous* call, once the inner episode ended) instead discards the
// action, draws a fresh inner initial state, and reports a neutral
// outer transition. This mirrors original_source/src/envs/meta.rs's
// step, which matches on the stored successor kind from the state
// rather than a freshly computed one — collapsing both into a single
// call would silently feed the agent's action into an episode that
// hasn't started yet and would never produce a neutral-feedback
// transition at all.
//
// The outer episode itself never ends on an inner episode boundary —
// only meta.TrialLimit can end it.
func (e *Env[S, O, A, F]) Step(
	s innerEnvState[S, O, A, F], a A, rng *rand.Rand, logger stats.Logger,
) (timestep.Successor[innerEnvState[S, O, A, F]], F) {
	next := s

	if s.state.InnerKind != timestep.Continue {
		// The inner episode ended as of the previous call; this call's
		// action belongs to an episode that has not started, so it is
		// discarded in favor of a fresh inner initial state. The first
		// observation of the new episode must see PrevStep absent.
		fresh := s.inner.InitialState(rng)
		next.state.Inner = fresh
		next.state.InnerKind = timestep.Continue
		next.state.PrevAction = space.None()
		next.state.EpisodeDone = false
		return timestep.NewContinue(next), neutralOuter[F]()
	}

	succ, feedback := s.inner.Step(s.state.Inner, a, rng, logger)
	inner, outer := splitFeedback(feedback)

	next.state.PrevAction = space.Some(PrevStepPair[A, F]{Action: a, Feedback: inner})
	next.state.EpisodeDone = false

	switch succ.Kind() {
	case timestep.Terminate:
		// No successor state exists; next.state.Inner is left as-is and
		// unread, since innerObservation returns None whenever InnerKind
		// == Terminate regardless of the stored Inner value.
		next.state.InnerKind = timestep.Terminate
		next.state.EpisodeDone = true
	case timestep.Interrupt:
		next.state.Inner = succ.MustState()
		next.state.InnerKind = timestep.Interrupt
		next.state.EpisodeDone = true
	default:
		next.state.Inner = succ.MustState()
		next.state.InnerKind = timestep.Continue
	}

	return timestep.NewContinue(next), outer
}

func (e *Env[S, O, A, F]) Structure() env.Structure {
	// Structure requires a sampled instance; callers construct one via
	// Dist.SampleEnvironment with a throwaway rng when only the spaces
	// are needed (e.g. building a policy network ahead of rollout).
	// Every concrete EnvDistribution in this module produces
	// environments with identical Structure across samples.
	rng := rand.New(rand.NewSource(0))
	return e.Dist.SampleEnvironment(rng).Structure()
}
