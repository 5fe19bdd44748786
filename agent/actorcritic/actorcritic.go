// Package actorcritic implements the policy-gradient actor-critic
// agent shape: each BatchUpdate computes per-step values from a
// critic.Critic, runs one policyupdate.Updater step against the policy,
// then (if the critic wraps a learned value function) fits that value
// function toward matching regression targets.
//
// Generalizes vanillaac/VanillaAC.go's Step() sequence — predict
// values, compute the policy's advantage and the critic's own MSE
// target from the same prediction, update the policy, loop the critic
// solver valueGradSteps times, copy weights to the behaviour/online
// nets — replacing its hardwired TD(0) state-value rule with the
// Updater/Critic abstractions so the same agent shape serves VPG, PPO,
// and TRPO over either critic.ReturnCritic or critic.GAECritic.
package actorcritic

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/critic"
	"github.com/arborrl/corerl/dist"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/policyupdate"
	"github.com/arborrl/corerl/solver"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// ValueTarget is implemented by a Critic that also wraps a learned value
// function needing its own regression target (critic.GAECritic); a
// Critic with no learned weights (critic.ReturnCritic) implements only
// critic.Critic and leaves Agent.ValueFn nil.
type ValueTarget interface {
	Targets(packed buffer.Packed[space.Element, space.Element, float64], logger stats.Logger) ([]float64, error)
}

// Agent wires a discrete categorical policy, a policyupdate.Updater, and
// a critic.Critic into one agent.Agent. TrainPolicy is the network
// BatchUpdate trains; ActPolicy is a batch-1 clone of the same weights
// (network.Set copies TrainPolicy onto it after every update) used for
// rollout action selection — the same online/training-network split as
// vanillaac/VanillaAC.go's behaviour/trainPolicy pair, needed because a
// Gorgonia network's input (and so batch size) is fixed at construction.
type Agent struct {
	TrainPolicy network.Module
	ActPolicy   network.Module
	PolicyOpt   solver.Optimizer
	Updater     policyupdate.Updater
	NumActions  int

	Critic   critic.Critic[space.Element, space.Element, float64]
	ObsSpace space.FeatureEncoder

	// ValueFn, if non-nil, is trained toward Critic's regression
	// targets every BatchUpdate; Critic must also implement
	// ValueTarget in that case (New returns an error otherwise, since it
	// is a construction-time wiring mistake, not a runtime condition).
	ValueFn        network.Module
	ValueOpt       solver.Optimizer
	ValueGradSteps int
	valueLoss      *G.Node
	valueTargets   *G.Node

	Bound buffer.DataBound
}

// New wires a value-function training graph onto valueFn (if non-nil)
// and returns a ready-to-use Agent. trainPolicy and actPolicy must
// already have been constructed (their graphs and Forward nodes wired);
// updater must have been built from trainPolicy (e.g. via
// policyupdate.NewVPG(trainPolicy)) so its loss graph shares
// trainPolicy's graph.
func New(
	trainPolicy, actPolicy network.Module,
	policyOpt solver.Optimizer,
	updater policyupdate.Updater,
	crit critic.Critic[space.Element, space.Element, float64],
	obsSpace space.FeatureEncoder,
	valueFn network.Module,
	valueOpt solver.Optimizer,
	valueGradSteps int,
	bound buffer.DataBound,
) (*Agent, error) {
	a := &Agent{
		TrainPolicy:    trainPolicy,
		ActPolicy:      actPolicy,
		PolicyOpt:      policyOpt,
		Updater:        updater,
		NumActions:     trainPolicy.Net().Outputs()[0],
		Critic:         crit,
		ObsSpace:       obsSpace,
		ValueFn:        valueFn,
		ValueOpt:       valueOpt,
		ValueGradSteps: valueGradSteps,
		Bound:          bound,
	}

	if valueFn != nil {
		if _, ok := crit.(ValueTarget); !ok {
			return nil, fmt.Errorf("actorcritic: New: ValueFn is set but Critic (%T) does not implement ValueTarget", crit)
		}
		net := valueFn.Net()
		batch := net.BatchSize()
		pred := net.Prediction()[0]
		predVec, err := G.Reshape(pred, []int{batch})
		if err != nil {
			return nil, fmt.Errorf("actorcritic: New: could not reshape value prediction: %w", err)
		}
		targets := G.NewVector(net.Graph(), tensor.Float64, G.WithShape(batch), G.WithName("actorcritic/value_targets"))
		diff, err := G.Sub(predVec, targets)
		if err != nil {
			return nil, fmt.Errorf("actorcritic: New: %w", err)
		}
		sq, err := G.Square(diff)
		if err != nil {
			return nil, fmt.Errorf("actorcritic: New: %w", err)
		}
		loss, err := G.Mean(sq)
		if err != nil {
			return nil, fmt.Errorf("actorcritic: New: %w", err)
		}
		if _, err := G.Grad(loss, net.Learnables()...); err != nil {
			return nil, fmt.Errorf("actorcritic: New: could not compute value function gradient: %w", err)
		}
		a.valueLoss = loss
		a.valueTargets = targets
	}

	return a, nil
}

type actor struct{ agent *Agent }

func (a actor) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }

func (a actor) Act(state agent.EpisodeState, obs space.Element, rng *rand.Rand) (space.Element, agent.EpisodeState) {
	net := a.agent.ActPolicy.Net()
	features := make([]float64, a.agent.ObsSpace.NumFeatures())
	if err := a.agent.ObsSpace.Features(obs, false, features); err != nil {
		panic(fmt.Sprintf("actorcritic: act: could not encode observation: %v", err))
	}
	if err := net.SetInput(features); err != nil {
		panic(fmt.Sprintf("actorcritic: act: could not set policy input: %v", err))
	}
	pred, err := a.agent.ActPolicy.Forward()
	if err != nil {
		panic(fmt.Sprintf("actorcritic: act: forward pass failed: %v", err))
	}
	// Forward only wires the prediction node; a machine must actually
	// run the graph to populate its value (ActPolicy has no gradient
	// graph, so a plain machine with no bound duals suffices).
	machine := G.NewTapeMachine(net.Graph())
	defer machine.Close()
	if err := machine.RunAll(); err != nil {
		panic(fmt.Sprintf("actorcritic: act: forward pass failed: %v", err))
	}
	if err := machine.Reset(); err != nil {
		panic(fmt.Sprintf("actorcritic: act: could not reset policy machine: %v", err))
	}
	logits, ok := pred.Value().Data().([]float64)
	if !ok {
		panic(fmt.Sprintf("actorcritic: act: unexpected policy output type %T", pred.Value().Data()))
	}

	cat := dist.NewCategorical([][]float64{logits})
	sampled := cat.Sample(rng)
	action := int(sampled[0][0])
	return action, nil
}

func (a *Agent) Actor(mode agent.Mode) agent.Actor[space.Element, space.Element] {
	return actor{agent: a}
}

func (a *Agent) MinUpdateSize() buffer.DataBound { return a.Bound }

func (a *Agent) Buffer() buffer.History[space.Element, space.Element, float64] {
	return buffer.NewSliceHistory[space.Element, space.Element, float64](a.Bound)
}

// toIntActions narrows a packed batch's space.Element-typed actions down
// to the concrete int type policyupdate.Updater requires, the same
// runtime assertion qlearning/bandit apply at their own Action field
// reads, generalized here to a whole packed batch at once.
func toIntActions(p buffer.Packed[space.Element, space.Element, float64]) buffer.Packed[space.Element, int, float64] {
	steps := make([]timestep.PartialStep[space.Element, int, float64], len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = timestep.PartialStep[space.Element, int, float64]{
			Observation:    s.Observation,
			Action:         s.Action.(int),
			Feedback:       s.Feedback,
			NextKind:       s.NextKind,
			InterruptState: s.InterruptState,
		}
	}
	return buffer.Packed[space.Element, int, float64]{Steps: steps, EpisodeLengths: p.EpisodeLengths}
}

func (a *Agent) encodeObservations(packed buffer.Packed[space.Element, space.Element, float64]) ([]float64, error) {
	n := a.ObsSpace.NumFeatures()
	out := make([]float64, len(packed.Steps)*n)
	row := make([]float64, n)
	for i, s := range packed.Steps {
		for j := range row {
			row[j] = 0
		}
		if err := a.ObsSpace.Features(s.Observation, false, row); err != nil {
			return nil, fmt.Errorf("actorcritic: could not encode observation %d: %w", i, err)
		}
		copy(out[i*n:(i+1)*n], row)
	}
	return out, nil
}

func (a *Agent) BatchUpdate(
	buffers []buffer.History[space.Element, space.Element, float64],
	logger stats.Logger,
) error {
	var steps []timestep.PartialStep[space.Element, space.Element, float64]
	for _, buf := range buffers {
		steps = append(steps, buf.Drain()...)
	}
	if len(steps) == 0 {
		return nil
	}
	packed := buffer.Pack(steps)

	stepValues, err := a.Critic.Values(packed, logger)
	if err != nil {
		return fmt.Errorf("actorcritic: batchupdate: could not compute critic values: %w", err)
	}
	if len(stepValues) != len(packed.Steps) {
		// A Critic may drop an episode it cannot value (e.g.
		// ReturnCritic dropping an unbootstrapped Interrupt tail); this
		// agent has no way to drop the corresponding steps from the
		// policy/feature batch to match, so it refuses to silently
		// misalign values against the wrong steps.
		return fmt.Errorf("actorcritic: batchupdate: critic returned %d values for %d steps", len(stepValues), len(packed.Steps))
	}

	features, err := a.encodeObservations(packed)
	if err != nil {
		return fmt.Errorf("actorcritic: batchupdate: %w", err)
	}
	if err := a.TrainPolicy.Net().SetInput(features); err != nil {
		return fmt.Errorf("actorcritic: batchupdate: could not set policy input: %w", err)
	}

	intPacked := toIntActions(packed)
	if err := a.Updater.Update(intPacked, stepValues, a.TrainPolicy, a.PolicyOpt, logger); err != nil {
		return fmt.Errorf("actorcritic: batchupdate: policy update failed: %w", err)
	}

	if err := network.Set(a.ActPolicy.Net(), a.TrainPolicy.Net()); err != nil {
		return fmt.Errorf("actorcritic: batchupdate: could not sync act policy weights: %w", err)
	}

	if a.ValueFn != nil {
		targetValues, err := a.Critic.(ValueTarget).Targets(packed, logger)
		if err != nil {
			return fmt.Errorf("actorcritic: batchupdate: could not compute value targets: %w", err)
		}
		if err := a.ValueFn.Net().SetInput(features); err != nil {
			return fmt.Errorf("actorcritic: batchupdate: could not set value function input: %w", err)
		}
		targetTensor := tensor.New(tensor.WithBacking(append([]float64{}, targetValues...)),
			tensor.WithShape(len(targetValues)))
		if err := G.Let(a.valueTargets, targetTensor); err != nil {
			return fmt.Errorf("actorcritic: batchupdate: could not bind value targets: %w", err)
		}

		for i := 0; i < a.ValueGradSteps; i++ {
			lossValue, stepErr := a.ValueOpt.BackwardStep(a.valueLoss, logger)
			if stepErr != nil {
				if stepErr.Kind == solver.Unrecoverable {
					return fmt.Errorf("actorcritic: batchupdate: value function step %d: %w", i, stepErr)
				}
				if logger != nil {
					logger.Log(stats.MustId("actorcritic/value_skipped_step"), stats.Count(1))
				}
				continue
			}
			if logger != nil {
				logger.Log(stats.MustId("actorcritic/value_loss"), stats.Scalar(lossValue))
			}
		}
	}

	return nil
}
