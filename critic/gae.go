package critic

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
	"github.com/arborrl/corerl/utils/floatutils"
	"github.com/arborrl/corerl/utils/matutils"
)

// advantageClipBound caps a standardized GAE advantage's magnitude:
// without it, a single outlier episode can dominate the policy
// gradient across a whole batch.
const advantageClipBound = 10.0

// GAECritic wraps a learned value function (a network.Module) and
// computes the GAE(λ) advantage for each step of a packed batch, along
// with the value targets needed for the critic's own squared-error
// update. Adapts buffer/gae/GAE.go's FinishPath
// (deltas.AddScaledVec/discountCumSum with γλ), generalized from its
// fixed-size single-path form to a packed multi-episode batch, and
// exposes the wrapped module's trainable variables via the Neural
// module contract for the critic's own loss graph (adapts
// agent/nonlinear/continuous/vanillaac/VanillaAC.go's value-function
// loss).
type GAECritic struct {
	ValueFn     network.Module
	ObsSpace    space.FeatureEncoder
	Gamma       float64
	Lambda      float64
	Standardize bool
}

func NewGAECritic(valueFn network.Module, obsSpace space.FeatureEncoder, gamma, lambda float64) *GAECritic {
	return &GAECritic{
		ValueFn:     valueFn,
		ObsSpace:    obsSpace,
		Gamma:       floatutils.Clip(gamma, 0, 1),
		Lambda:      floatutils.Clip(lambda, 0, 1),
		Standardize: true,
	}
}

// predictValues runs the wrapped value function over every observation
// in obs, batched through a single features matrix. A fresh
// CloneWithBatch'd copy of the value network is built for every call
// since obs can be a different length each time (a packed batch, then a
// single per-episode bootstrap state) while a Gorgonia network's input
// shape is fixed at construction; CloneWithBatch copies the current
// learnable values along with the graph, so the clone is exact as long
// as nothing trains ValueFn between building it and calling Values
// (true here: the critic always runs before its own value function
// update in one BatchUpdate round — see agent/actorcritic).
func (c *GAECritic) predictValues(obs []space.Element) ([]float64, error) {
	if len(obs) == 0 {
		return nil, nil
	}
	n := c.ObsSpace.NumFeatures()
	feats := mat.NewDense(len(obs), n, nil)
	if err := c.ObsSpace.BatchFeatures(obs, false, feats); err != nil {
		return nil, fmt.Errorf("gaecritic: could not encode observations: %w", err)
	}

	net, err := c.ValueFn.Net().CloneWithBatch(len(obs))
	if err != nil {
		return nil, fmt.Errorf("gaecritic: could not size value function to batch %d: %w", len(obs), err)
	}
	if err := net.SetInput(feats.RawMatrix().Data); err != nil {
		return nil, fmt.Errorf("gaecritic: could not set value function input: %w", err)
	}

	machine := G.NewTapeMachine(net.Graph())
	defer machine.Close()
	if err := machine.RunAll(); err != nil {
		return nil, fmt.Errorf("gaecritic: forward pass failed: %w", err)
	}
	if err := machine.Reset(); err != nil {
		return nil, fmt.Errorf("gaecritic: could not reset value function machine: %w", err)
	}

	raw, ok := net.Prediction()[0].Value().Data().([]float64)
	if !ok {
		if scalar, ok := net.Prediction()[0].Value().Data().(float64); ok {
			return []float64{scalar}, nil
		}
		return nil, fmt.Errorf("gaecritic: unexpected value function output type %T", net.Prediction()[0].Value().Data())
	}
	return raw, nil
}

// rawAdvantages computes the per-step GAE(λ) advantage and the predicted
// value it was computed against, before any standardization — shared by
// Values (which standardizes the advantage for the policy update) and
// Targets (which needs the predicted value back out to form the
// critic's own regression target).
func (c *GAECritic) rawAdvantages(packed buffer.Packed[space.Element, space.Element, float64]) (advantages, predicted []float64, err error) {
	obs := make([]space.Element, len(packed.Steps))
	for i, s := range packed.Steps {
		obs[i] = s.Observation
	}
	values, err := c.predictValues(obs)
	if err != nil {
		return nil, nil, err
	}

	advantages = make([]float64, 0, len(packed.Steps))
	start := 0
	for i := 0; i < packed.NumEpisodes(); i++ {
		ep := packed.Episode(i)
		epValues := values[start : start+len(ep)]
		start += len(ep)

		last := ep[len(ep)-1]
		bootstrap := 0.0
		if last.NextKind == timestep.Interrupt {
			bootVals, err := c.predictValues([]space.Element{last.InterruptState})
			if err != nil {
				return nil, nil, err
			}
			bootstrap = bootVals[0]
		}

		deltas := make([]float64, len(ep))
		for t, s := range ep {
			var nextValue float64
			if t+1 < len(ep) {
				nextValue = epValues[t+1]
			} else {
				nextValue = bootstrap
			}
			deltas[t] = s.Feedback + c.Gamma*nextValue - epValues[t]
		}
		advantages = append(advantages, discountCumSum(deltas, c.Gamma*c.Lambda)...)
	}
	return advantages, values, nil
}

// Values returns the GAE(λ) advantage estimate for every step, in
// packed order.
func (c *GAECritic) Values(packed buffer.Packed[space.Element, space.Element, float64], logger stats.Logger) ([]float64, error) {
	advantages, _, err := c.rawAdvantages(packed)
	if err != nil {
		return nil, err
	}

	if c.Standardize && len(advantages) > 0 {
		mean := stat.Mean(advantages, nil)
		std := stat.StdDev(advantages, nil) + 1e-8
		floats.AddConst(-mean, advantages)
		floats.Scale(1/std, advantages)

		vec := mat.NewVecDense(len(advantages), advantages)
		matutils.VecClip(vec, -advantageClipBound, advantageClipBound)
	}
	return advantages, nil
}

// Targets returns the TD(λ) value-function regression target for every
// step (the unstandardized advantage plus the value the critic already
// predicted there), for training the wrapped value function itself —
// the advantage/value split a caller needs to both update the policy
// from GAE advantages and update the critic from value-style targets,
// adapted from vanillaac/VanillaAC.go's separate policy-advantage and
// critic-MSE-target computations sharing one predicted value.
func (c *GAECritic) Targets(packed buffer.Packed[space.Element, space.Element, float64], logger stats.Logger) ([]float64, error) {
	advantages, predicted, err := c.rawAdvantages(packed)
	if err != nil {
		return nil, err
	}
	targets := make([]float64, len(advantages))
	for i := range targets {
		targets[i] = advantages[i] + predicted[i]
	}
	return targets, nil
}
