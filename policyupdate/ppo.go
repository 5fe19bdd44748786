package policyupdate

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/solver"
	"github.com/arborrl/corerl/stats"
)

// PPO is the clipped-surrogate policy update: maximize
// mean(min(ratio*advantage, clip(ratio, 1-eps, 1+eps)*advantage)), where
// ratio = exp(logProb_new - logProb_old) and logProb_old is the
// reference policy's log-probability at the start of this update,
// treated as a constant. Grounded on
// original_source/src/torch/agents/tests/ppo.rs for the clip-ratio
// semantics; VPG's policy loss graph — logProb*advantage, G.Mean,
// G.Neg — is the nearest structural analogue and is reused here for
// the unclipped term, expressed with the same gorgonia ops VanillaPG.go and
// CategoricalMLP.go use.
type PPO struct {
	graph      *G.ExprGraph
	cat        *categoricalGraph
	oldLogProb *G.Node
	adv        *G.Node
	loss       *G.Node
	actions    int
}

// NewPPO wires a PPO clipped-objective loss graph onto policy's forward
// graph. clipEpsilon is the standard PPO clip range (e.g. 0.2).
func NewPPO(policy network.Module, clipEpsilon float64) (*PPO, error) {
	logits, err := policy.Forward()
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	g := policy.Net().Graph()
	cat, err := newCategoricalGraph(g, logits)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	batch := logits.Shape()[0]

	oldLogProb := G.NewVector(g, logits.Dtype(), G.WithShape(batch),
		G.WithInit(G.Zeroes()), G.WithName("ppo/old_log_prob"))
	adv := G.NewMatrix(g, logits.Dtype(), G.WithShape(batch, 1),
		G.WithInit(G.Zeroes()), G.WithName("ppo/advantages"))

	logRatio, err := G.Sub(cat.logProb, oldLogProb)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	ratio, err := G.Exp(logRatio)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	ratioCol, err := G.Reshape(ratio, []int{batch, 1})
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}

	clippedRatio, err := clampNode(ratioCol, 1-clipEpsilon, 1+clipEpsilon)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}

	unclippedTerm, err := G.HadamardProd(ratioCol, adv)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	clippedTerm, err := G.HadamardProd(clippedRatio, adv)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}

	surrogate, err := elementwiseMin(unclippedTerm, clippedTerm)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	loss, err := G.Mean(surrogate)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}
	loss, err = G.Neg(loss)
	if err != nil {
		return nil, fmt.Errorf("newppo: %w", err)
	}

	if _, err := G.Grad(loss, policy.Net().Learnables()...); err != nil {
		return nil, fmt.Errorf("newppo: could not build gradient: %w", err)
	}

	return &PPO{
		graph:      g,
		cat:        cat,
		oldLogProb: oldLogProb,
		adv:        adv,
		loss:       loss,
		actions:    numActions(policy),
	}, nil
}

// referenceLogProb runs the policy's current logits (before this
// update's gradient step) through the categorical log-prob formula in
// plain Go, giving the constant reference distribution PPO's ratio is
// computed against. CategoricalMLP's Logits()/LogProbOf
// split (forward pass separate from the graph-bound gradient pass) is
// the nearest analogue: read the already-bound logits value, compute
// the reference log-probabilities without re-running the backward
// machinery.
func referenceLogProb(logitsValue []float64, actions []int, numActions int) []float64 {
	batch := len(actions)
	out := make([]float64, batch)
	for i := 0; i < batch; i++ {
		row := logitsValue[i*numActions : (i+1)*numActions]
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		sumExp := 0.0
		for _, v := range row {
			sumExp += math.Exp(v - max)
		}
		logSumExp := max + math.Log(sumExp)
		out[i] = row[actions[i]] - logSumExp
	}
	return out
}

func (p *PPO) Update(
	packed buffer.Packed[any, int, float64],
	stepValues []float64,
	policy network.Module,
	opt solver.Optimizer,
	logger stats.Logger,
) error {
	actions, advantages := flatten(packed, stepValues)
	if err := p.cat.bindActions(actions, p.actions); err != nil {
		return fmt.Errorf("ppo: update: %w", err)
	}
	if err := bindAdvantages(p.adv, advantages); err != nil {
		return fmt.Errorf("ppo: update: %w", err)
	}

	logitsValue, ok := p.cat.logits.Value().Data().([]float64)
	if !ok {
		return fmt.Errorf("ppo: update: logits value is not []float64")
	}
	oldLogProb := referenceLogProb(logitsValue, actions, p.actions)
	oldTensor := tensor.New(tensor.WithBacking(oldLogProb), tensor.WithShape(len(oldLogProb)))
	if err := G.Let(p.oldLogProb, oldTensor); err != nil {
		return fmt.Errorf("ppo: update: could not bind reference log-prob: %w", err)
	}

	lossValue, stepErr := opt.BackwardStep(p.loss, logger)
	if stepErr != nil {
		if stepErr.Kind == solver.Unrecoverable {
			return fmt.Errorf("ppo: update: %w", stepErr)
		}
		if logger != nil {
			logger.Log(stats.MustId("ppo/skipped_step"), stats.Count(1))
		}
		return nil
	}
	if logger != nil {
		logger.Log(stats.MustId("ppo/loss"), stats.Scalar(lossValue))
	}
	return nil
}
