// Package policyupdate implements the policy-gradient update rules built
// on top of the Neural module and Optimizer contracts: VPG, PPO, and
// TRPO. All three assume a discrete (Finite/Index) action space with a
// policy module whose Forward() output is a batch of action-logits — the
// same categorical parameterization the
// agent/nonlinear/continuous/policy/CategoricalMLP.go builds, generalized
// from one fixed policy type into the Updater interface so any
// network.Module producing logits of the right width can be trained by
// any of the three rules below.
package policyupdate

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/solver"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Updater applies one policy-improvement step given a packed batch of
// experience, the per-step baseline/value estimate from a Critic, the
// policy being trained, and the backend to run its gradient step
// through.
type Updater interface {
	Update(
		packed buffer.Packed[any, int, float64],
		stepValues []float64,
		policy network.Module,
		opt solver.Optimizer,
		logger stats.Logger,
	) error
}

// logSumExp computes, row-wise, log(sum(exp(logits))) along axis "along".
// Direct adaptation of policy/CategoricalMLP.go's LogSumExp.
func logSumExp(logits *G.Node, along int) (*G.Node, error) {
	max, err := G.Max(logits, along)
	if err != nil {
		return nil, err
	}
	exponent, err := G.BroadcastSub(logits, max, nil, []byte{1})
	if err != nil {
		return nil, err
	}
	exponent, err = G.Exp(exponent)
	if err != nil {
		return nil, err
	}
	sum, err := G.Sum(exponent, along)
	if err != nil {
		return nil, err
	}
	logSum, err := G.Log(sum)
	if err != nil {
		return nil, err
	}
	return G.Add(max, logSum)
}

// actionOneHot encodes actions as a batch x numActions one-hot matrix,
// the same encoding policy/CategoricalMLP.go builds for LogProbOf.
func actionOneHot(actions []int, numActions int) []float64 {
	out := make([]float64, len(actions)*numActions)
	for i, a := range actions {
		out[i*numActions+a] = 1.0
	}
	return out
}

// categoricalGraph wires a batch x numActions logits node into a
// log-probability-of-selected-action node, via an action-indices input
// node the caller binds per batch with G.Let. Grounded directly on
// policy/CategoricalMLP.go's actionIndices/logProbInputActions pair.
type categoricalGraph struct {
	logits        *G.Node
	actionIndices *G.Node
	logProb       *G.Node
}

func newCategoricalGraph(g *G.ExprGraph, logits *G.Node) (*categoricalGraph, error) {
	actionIndices := G.NewMatrix(g, tensor.Float64, G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()), G.WithName("policyupdate/action_indices"))

	selected, err := G.HadamardProd(actionIndices, logits)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalgraph: %w", err)
	}
	selected, err = G.Sum(selected, 1)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalgraph: %w", err)
	}
	lse, err := logSumExp(logits, 1)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalgraph: %w", err)
	}
	logProb, err := G.Sub(selected, lse)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalgraph: %w", err)
	}
	return &categoricalGraph{logits: logits, actionIndices: actionIndices, logProb: logProb}, nil
}

func (c *categoricalGraph) bindActions(actions []int, numActions int) error {
	backing := actionOneHot(actions, numActions)
	t := tensor.New(tensor.WithBacking(backing), tensor.WithShape(c.actionIndices.Shape()...))
	return G.Let(c.actionIndices, t)
}

// numActions infers the action count from a policy's output width.
func numActions(policy network.Module) int {
	outputs := policy.Net().Outputs()
	return outputs[0]
}

// flatten collects every step of every episode in packed order: actions
// and the baseline-subtracted advantage (stepValues supplies the
// baseline-adjusted value already, e.g. from a Critic).
func flatten(packed buffer.Packed[any, int, float64], stepValues []float64) ([]int, []float64) {
	actions := make([]int, len(packed.Steps))
	advantages := make([]float64, len(packed.Steps))
	for i, s := range packed.Steps {
		actions[i] = s.Action
		advantages[i] = stepValues[i]
	}
	return actions, advantages
}

// bindAdvantages writes values into an existing batch x 1 node via
// G.Let, the same pattern VanillaPG.go uses to rebind its advantages
// node every update (v.advantages / G.Let(v.advantages, ...)).
func bindAdvantages(node *G.Node, values []float64) error {
	t := tensor.New(tensor.WithBacking(append([]float64{}, values...)), tensor.WithShape(len(values), 1))
	return G.Let(node, t)
}

// elementwiseMin and elementwiseMax implement the standard
// min(a,b) = (a+b-|a-b|)/2, max(a,b) = (a+b+|a-b|)/2 identities. gorgonia
// exposes no binary elementwise min/max, only the reduction G.Max seen
// in policy/CategoricalMLP.go's LogSumExp, so PPO's clipped-surrogate
// min and clampNode's bounds are both built from G.Abs — used
// elsewhere in the network/Activations.go for the same kind
// of "build it from Abs" activation construction.
func elementwiseMin(a, b *G.Node) (*G.Node, error) {
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	absDiff, err := G.Abs(diff)
	if err != nil {
		return nil, err
	}
	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	result, err := G.Sub(sum, absDiff)
	if err != nil {
		return nil, err
	}
	return G.Mul(result, G.NewConstant(0.5))
}

func elementwiseMax(a, b *G.Node) (*G.Node, error) {
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	absDiff, err := G.Abs(diff)
	if err != nil {
		return nil, err
	}
	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	result, err := G.Add(sum, absDiff)
	if err != nil {
		return nil, err
	}
	return G.Mul(result, G.NewConstant(0.5))
}

// clampNode bounds every element of x into [lo, hi] via
// min(max(x, lo), hi), with lo/hi broadcast as constant nodes.
func clampNode(x *G.Node, lo, hi float64) (*G.Node, error) {
	loNode := G.NewConstant(lo)
	hiNode := G.NewConstant(hi)
	floored, err := elementwiseMax(x, loNode)
	if err != nil {
		return nil, err
	}
	return elementwiseMin(floored, hiNode)
}

func scalarValue(n *G.Node) (float64, error) {
	v, ok := n.Value().Data().(float64)
	if !ok {
		return 0, fmt.Errorf("policyupdate: node value is not a scalar float64")
	}
	return v, nil
}

// discountedKind reports whether a step's successor ends its episode,
// i.e. is Terminate or Interrupt rather than Continue. None of VPG, PPO
// or TRPO calls it.
func discountedKind(k timestep.Kind) bool {
	return k != timestep.Continue
}
