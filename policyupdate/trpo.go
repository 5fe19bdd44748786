package policyupdate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/solver"
	"github.com/arborrl/corerl/stats"
)

// TRPO is the natural-gradient trust-region update: solve for the
// conjugate-gradient direction of the Fisher-information matrix implied
// by the policy's KL divergence, then backtracking-line-search a step
// along that direction bounded by maxKL. Grounded on
// original_source/src/torch/optimizers/mod.rs's TrustRegionOptimizer for
// the loss/distance/max_distance contract. Update runs the
// conjugate-gradient solve and the line search itself, writing the
// policy's learnables directly; it does not call the Optimizer it is
// given. The solve has no direct precedent there and is written
// directly against gonum/mat, the linear-algebra library already in the
// dependency set.
type TRPO struct {
	graph  *G.ExprGraph
	cat    *categoricalGraph
	logits *G.Node

	oldLogits *G.Node
	adv       *G.Node

	loss       *G.Node // -mean(ratio * advantage), minimized
	kl         *G.Node // mean KL(old || new), evaluated at the current parameters
	learnables G.Nodes

	actions int

	MaxKL          float64
	CGIters        int
	CGDamping      float64
	CGResidualTol  float64
	BacktrackIters int
	BacktrackRatio float64
}

// NewTRPO wires a TRPO loss/KL graph onto policy's forward graph.
func NewTRPO(policy network.Module, maxKL float64) (*TRPO, error) {
	logits, err := policy.Forward()
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	g := policy.Net().Graph()
	cat, err := newCategoricalGraph(g, logits)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}

	oldLogits := G.NewMatrix(g, logits.Dtype(), G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()), G.WithName("trpo/old_logits"))
	adv := G.NewMatrix(g, logits.Dtype(), G.WithShape(logits.Shape()[0], 1),
		G.WithInit(G.Zeroes()), G.WithName("trpo/advantages"))

	oldFullLogProb, err := fullLogProbNode(oldLogits)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	newFullLogProb, err := fullLogProbNode(logits)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}

	oldSelected, err := G.Sum(G.Must(G.HadamardProd(cat.actionIndices, oldFullLogProb)), 1)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	logRatio, err := G.Sub(cat.logProb, oldSelected)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	ratio, err := G.Exp(logRatio)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	batch := logits.Shape()[0]
	ratioCol, err := G.Reshape(ratio, []int{batch, 1})
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	surrogate, err := G.HadamardProd(ratioCol, adv)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	surrogate, err = G.Mean(surrogate)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	loss, err := G.Neg(surrogate)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}

	oldProb, err := G.Exp(oldFullLogProb)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	klDiff, err := G.Sub(oldFullLogProb, newFullLogProb)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	klWeighted, err := G.HadamardProd(oldProb, klDiff)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	klPerRow, err := G.Sum(klWeighted, 1)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}
	kl, err := G.Mean(klPerRow)
	if err != nil {
		return nil, fmt.Errorf("newtrpo: %w", err)
	}

	learnables := policy.Net().Learnables()
	if _, err := G.Grad(loss, learnables...); err != nil {
		return nil, fmt.Errorf("newtrpo: could not build loss gradient: %w", err)
	}
	if _, err := G.Grad(kl, learnables...); err != nil {
		return nil, fmt.Errorf("newtrpo: could not build kl gradient: %w", err)
	}

	return &TRPO{
		graph:          g,
		cat:            cat,
		logits:         logits,
		oldLogits:      oldLogits,
		adv:            adv,
		loss:           loss,
		kl:             kl,
		learnables:     learnables,
		actions:        numActions(policy),
		MaxKL:          maxKL,
		CGIters:        10,
		CGDamping:      1e-2,
		CGResidualTol:  1e-10,
		BacktrackIters: 10,
		BacktrackRatio: 0.5,
	}, nil
}

// fullLogProbNode computes log-softmax(logits) row-wise, the same
// max-subtract-logsumexp formula LogSumExp/CategoricalMLP.go uses, but
// kept as a batch x numActions matrix instead of reducing to the
// selected action, since the KL term needs every action's probability.
func fullLogProbNode(logits *G.Node) (*G.Node, error) {
	lse, err := logSumExp(logits, 1)
	if err != nil {
		return nil, err
	}
	return G.BroadcastSub(logits, lse, nil, []byte{1})
}

func (t *TRPO) run() error {
	machine := G.NewTapeMachine(t.graph, G.BindDualValues(t.learnables...))
	defer machine.Close()
	if err := machine.RunAll(); err != nil {
		return err
	}
	return machine.Reset()
}

// flattenParams reads every learnable's current value into one flat
// vector, in Learnables() order.
func flattenParams(nodes G.Nodes) ([]float64, error) {
	var out []float64
	for _, n := range nodes {
		data, ok := n.Value().Data().([]float64)
		if !ok {
			if scalar, ok := n.Value().Data().(float64); ok {
				out = append(out, scalar)
				continue
			}
			return nil, fmt.Errorf("flattenparams: node value is not []float64 or float64")
		}
		out = append(out, data...)
	}
	return out, nil
}

// setParams writes flat back into every learnable, in Learnables() order.
func setParams(nodes G.Nodes, flat []float64) error {
	offset := 0
	for _, n := range nodes {
		size := sizeOf(n.Shape())
		slice := append([]float64{}, flat[offset:offset+size]...)
		offset += size
		t := tensor.New(tensor.WithBacking(slice), tensor.WithShape(n.Shape()...))
		if err := G.Let(n, t); err != nil {
			return fmt.Errorf("setparams: %w", err)
		}
	}
	return nil
}

func flattenGrad(nodes G.Nodes) ([]float64, error) {
	var out []float64
	for _, n := range nodes {
		grad, err := n.Grad()
		if err != nil {
			return nil, fmt.Errorf("flattengrad: %w", err)
		}
		data, ok := grad.Data().([]float64)
		if !ok {
			if scalar, ok := grad.Data().(float64); ok {
				out = append(out, scalar)
				continue
			}
			return nil, fmt.Errorf("flattengrad: grad value is not []float64 or float64")
		}
		out = append(out, data...)
	}
	return out, nil
}

func sizeOf(shape tensor.Shape) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// fisherVectorProduct estimates F*v via a finite-difference directional
// derivative of the KL gradient: since grad(KL)=0 at the current
// parameters, grad(KL, theta+eps*v)/eps approximates the Hessian-vector
// product F*v directly, avoiding a second-order backward pass gorgonia
// does not expose. CGDamping*v is added for the usual numerical
// conditioning of the CG solve.
func (t *TRPO) fisherVectorProduct(theta, v *mat.VecDense) (*mat.VecDense, error) {
	const eps = 1e-5
	n := v.Len()
	perturbed := make([]float64, n)
	for i := 0; i < n; i++ {
		perturbed[i] = theta.AtVec(i) + eps*v.AtVec(i)
	}
	if err := setParams(t.learnables, perturbed); err != nil {
		return nil, err
	}
	if err := t.run(); err != nil {
		return nil, err
	}
	gradAtPerturbed, err := flattenGrad(t.learnables)
	if err != nil {
		return nil, err
	}
	if err := setParams(t.learnables, theta.RawVector().Data); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, gradAtPerturbed[i]/eps+t.CGDamping*v.AtVec(i))
	}
	return out, nil
}

// conjugateGradient solves F x = b approximately, where F is only
// available as a matrix-vector product (fvp).
func (t *TRPO) conjugateGradient(theta *mat.VecDense, b *mat.VecDense) (*mat.VecDense, error) {
	n := b.Len()
	x := mat.NewVecDense(n, nil)
	r := mat.VecDenseCopyOf(b)
	p := mat.VecDenseCopyOf(b)
	rsold := mat.Dot(r, r)

	for i := 0; i < t.CGIters; i++ {
		Ap, err := t.fisherVectorProduct(theta, p)
		if err != nil {
			return nil, err
		}
		denom := mat.Dot(p, Ap)
		if denom == 0 {
			break
		}
		alpha := rsold / denom

		scaledP := mat.NewVecDense(n, nil)
		scaledP.ScaleVec(alpha, p)
		x.AddVec(x, scaledP)

		scaledAp := mat.NewVecDense(n, nil)
		scaledAp.ScaleVec(alpha, Ap)
		r.SubVec(r, scaledAp)

		rsnew := mat.Dot(r, r)
		if math.Sqrt(rsnew) < t.CGResidualTol {
			break
		}
		p2 := mat.NewVecDense(n, nil)
		p2.ScaleVec(rsnew/rsold, p)
		p2.AddVec(r, p2)
		p = p2
		rsold = rsnew
	}
	return x, nil
}

func (t *TRPO) Update(
	packed buffer.Packed[any, int, float64],
	stepValues []float64,
	policy network.Module,
	opt solver.Optimizer,
	logger stats.Logger,
) error {
	actions, advantages := flatten(packed, stepValues)
	if err := t.cat.bindActions(actions, t.actions); err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}
	if err := bindAdvantages(t.adv, advantages); err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}

	logitsValue, ok := t.logits.Value().Data().([]float64)
	if !ok {
		return fmt.Errorf("trpo: update: logits value is not []float64")
	}
	oldLogitsTensor := tensor.New(tensor.WithBacking(append([]float64{}, logitsValue...)),
		tensor.WithShape(t.logits.Shape()...))
	if err := G.Let(t.oldLogits, oldLogitsTensor); err != nil {
		return fmt.Errorf("trpo: update: could not snapshot old logits: %w", err)
	}

	if err := t.run(); err != nil {
		return fmt.Errorf("trpo: update: forward/backward pass failed: %w", err)
	}
	lossBefore, err := scalarValue(t.loss)
	if err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}
	if math.IsNaN(lossBefore) {
		if logger != nil {
			logger.Log(stats.MustId("trpo/nan_loss"), stats.Count(1))
		}
		return nil
	}

	theta, err := flattenParams(t.learnables)
	if err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}
	thetaVec := mat.NewVecDense(len(theta), theta)

	g, err := flattenGrad(t.learnables)
	if err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}
	gVec := mat.NewVecDense(len(g), g)

	direction, err := t.conjugateGradient(thetaVec, gVec)
	if err != nil {
		return fmt.Errorf("trpo: update: conjugate gradient solve failed: %w", err)
	}

	Fdir, err := t.fisherVectorProduct(thetaVec, direction)
	if err != nil {
		return fmt.Errorf("trpo: update: %w", err)
	}
	quadraticForm := mat.Dot(direction, Fdir)
	if quadraticForm <= 0 {
		if logger != nil {
			logger.Log(stats.MustId("trpo/degenerate_step"), stats.Count(1))
		}
		if err := setParams(t.learnables, theta); err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		return nil
	}
	stepSize := math.Sqrt(2 * t.MaxKL / quadraticForm)

	accepted := false
	fraction := 1.0
	for i := 0; i < t.BacktrackIters; i++ {
		candidate := make([]float64, len(theta))
		for j := range candidate {
			candidate[j] = theta[j] - fraction*stepSize*direction.AtVec(j)
		}
		if err := setParams(t.learnables, candidate); err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		if err := t.run(); err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		lossAfter, err := scalarValue(t.loss)
		if err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		klAfter, err := scalarValue(t.kl)
		if err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		if !math.IsNaN(lossAfter) && !math.IsNaN(klAfter) &&
			lossAfter < lossBefore && klAfter <= t.MaxKL {
			accepted = true
			if logger != nil {
				logger.Log(stats.MustId("trpo/loss"), stats.Scalar(lossAfter))
				logger.Log(stats.MustId("trpo/kl"), stats.Scalar(klAfter))
				logger.Log(stats.MustId("trpo/backtrack_iters"), stats.Count(uint64(i)))
			}
			break
		}
		fraction *= t.BacktrackRatio
	}

	if !accepted {
		if err := setParams(t.learnables, theta); err != nil {
			return fmt.Errorf("trpo: update: %w", err)
		}
		if logger != nil {
			logger.Log(stats.MustId("trpo/rejected_step"), stats.Count(1))
		}
	}
	return nil
}
