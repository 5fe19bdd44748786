package policyupdate

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/solver"
	"github.com/arborrl/corerl/stats"
)

// VPG is the vanilla policy-gradient update: maximize
// mean(logProb(a|s) * advantage), i.e. minimize its negation. Direct
// adaptation of vanillapg/VanillaPG.go's policy-loss graph
// (G.HadamardProd(logProb, advantages) -> G.Mean -> G.Neg), generalized
// from that package's fixed advantages-vector field into a graph rebuilt
// once and rebound per update via bindAdvantages/bindActions.
type VPG struct {
	graph   *G.ExprGraph
	logits  *G.Node
	cat     *categoricalGraph
	adv     *G.Node
	loss    *G.Node
	actions int
}

// NewVPG wires a VPG loss graph onto policy's existing forward graph.
// The policy must already have been constructed (its Forward() node
// wired into its own graph); NewVPG adds the log-prob/advantage/loss
// nodes onto that same graph so one TapeMachine run computes both the
// forward pass and the loss.
func NewVPG(policy network.Module) (*VPG, error) {
	logits, err := policy.Forward()
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}
	g := policy.Net().Graph()
	cat, err := newCategoricalGraph(g, logits)
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}

	batch := logits.Shape()[0]
	adv := G.NewMatrix(g, logits.Dtype(), G.WithShape(batch, 1),
		G.WithInit(G.Zeroes()), G.WithName("vpg/advantages"))

	logProbCol, err := G.Reshape(cat.logProb, []int{batch, 1})
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}
	policyLoss, err := G.HadamardProd(logProbCol, adv)
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}
	policyLoss, err = G.Mean(policyLoss)
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}
	policyLoss, err = G.Neg(policyLoss)
	if err != nil {
		return nil, fmt.Errorf("newvpg: %w", err)
	}

	if _, err := G.Grad(policyLoss, policy.Net().Learnables()...); err != nil {
		return nil, fmt.Errorf("newvpg: could not build gradient: %w", err)
	}

	return &VPG{
		graph:   g,
		logits:  logits,
		cat:     cat,
		adv:     adv,
		loss:    policyLoss,
		actions: numActions(policy),
	}, nil
}

func (v *VPG) Update(
	packed buffer.Packed[any, int, float64],
	stepValues []float64,
	policy network.Module,
	opt solver.Optimizer,
	logger stats.Logger,
) error {
	actions, advantages := flatten(packed, stepValues)
	if err := v.cat.bindActions(actions, v.actions); err != nil {
		return fmt.Errorf("vpg: update: %w", err)
	}
	if err := bindAdvantages(v.adv, advantages); err != nil {
		return fmt.Errorf("vpg: update: %w", err)
	}

	lossValue, stepErr := opt.BackwardStep(v.loss, logger)
	if stepErr != nil {
		if stepErr.Kind == solver.Unrecoverable {
			return fmt.Errorf("vpg: update: %w", stepErr)
		}
		if logger != nil {
			logger.Log(stats.MustId("vpg/skipped_step"), stats.Count(1))
		}
		return nil
	}
	if logger != nil {
		logger.Log(stats.MustId("vpg/loss"), stats.Scalar(lossValue))
	}
	return nil
}
