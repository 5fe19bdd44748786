package solver

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"

	"github.com/arborrl/corerl/stats"
)

// StepErrorKind distinguishes a recoverable optimizer failure (skip the
// step, parameters unchanged) from an unrecoverable one. The callers in
// policyupdate and agent/actorcritic return an unrecoverable error
// wrapped in their own error; they do not panic.
type StepErrorKind int

const (
	// Recoverable: NaN loss or NaN constraint. The update rule logs a
	// warning and skips the step.
	Recoverable StepErrorKind = iota
	// Unrecoverable: any other backend error. There is no meaningful
	// continuation.
	Unrecoverable
)

type StepError struct {
	Kind StepErrorKind
	Err  error
}

func (e *StepError) Error() string { return e.Err.Error() }

func recoverableError(format string, args ...any) *StepError {
	return &StepError{Kind: Recoverable, Err: fmt.Errorf(format, args...)}
}

func unrecoverableError(format string, args ...any) *StepError {
	return &StepError{Kind: Unrecoverable, Err: fmt.Errorf(format, args...)}
}

// Optimizer is the contract the Policy Updater requires of its
// gradient-step backend: a plain backward step, and a trust-region
// variant for TRPO-style updates. Grounded on the wrapped
// G.Solver (solver.Solver), generalized from "call vm.RunAll() then
// solver.Step()" (the experiment/Online.go training-loop
// idiom) into an explicit closure-based step so callers never touch the
// Gorgonia VM directly.
type Optimizer interface {
	// BackwardStep runs the machine that computes lossNode (already
	// wired into the optimizer's graph), then applies one solver step
	// over the bound model. It returns the scalar loss value, or a
	// StepError if the loss was NaN (Recoverable) or the backend
	// itself failed (Unrecoverable).
	BackwardStep(lossNode *G.Node, logger stats.Logger) (float64, *StepError)

	// TrustRegionBackwardStep is BackwardStep's TRPO variant:
	// distanceNode (e.g. mean KL, already wired into the same graph)
	// must not exceed maxDistance. If the loss or distance are NaN the
	// step is Recoverable; if the distance bound is violated after
	// running the graph, the step is rejected (not an error) and
	// reported via the returned bool.
	TrustRegionBackwardStep(
		lossNode, distanceNode *G.Node,
		maxDistance float64,
		logger stats.Logger,
	) (lossValue float64, accepted bool, stepErr *StepError)
}

// GorgoniaOptimizer adapts a Gorgonia graph, its trainable model (the
// Neural module contract's Learnables/Model), and a Solver
// (solver.Solver) into the Optimizer contract.
type GorgoniaOptimizer struct {
	Graph  *G.ExprGraph
	Model  []G.ValueGrad
	Nodes  G.Nodes
	Solver G.Solver
}

func NewGorgoniaOptimizer(graph *G.ExprGraph, nodes G.Nodes, model []G.ValueGrad, solver G.Solver) *GorgoniaOptimizer {
	return &GorgoniaOptimizer{Graph: graph, Model: model, Nodes: nodes, Solver: solver}
}

func (o *GorgoniaOptimizer) run() error {
	machine := G.NewTapeMachine(o.Graph, G.BindDualValues(o.Nodes...))
	defer machine.Close()
	if err := machine.RunAll(); err != nil {
		return err
	}
	return machine.Reset()
}

func scalarOf(n *G.Node) (float64, error) {
	v, ok := n.Value().Data().(float64)
	if !ok {
		return 0, fmt.Errorf("node value is not a scalar float64")
	}
	return v, nil
}

func (o *GorgoniaOptimizer) BackwardStep(lossNode *G.Node, logger stats.Logger) (float64, *StepError) {
	if err := o.run(); err != nil {
		return 0, unrecoverableError("backwardstep: forward/backward pass failed: %v", err)
	}

	lossValue, err := scalarOf(lossNode)
	if err != nil {
		return 0, unrecoverableError("backwardstep: %v", err)
	}
	if math.IsNaN(lossValue) {
		if logger != nil {
			logger.Log(stats.MustId("nan_loss"), stats.Count(1))
		}
		return lossValue, recoverableError("backwardstep: NaN loss, step skipped")
	}

	if err := o.Solver.Step(o.Model); err != nil {
		return lossValue, unrecoverableError("backwardstep: solver step failed: %v", err)
	}
	return lossValue, nil
}

func (o *GorgoniaOptimizer) TrustRegionBackwardStep(
	lossNode, distanceNode *G.Node, maxDistance float64, logger stats.Logger,
) (float64, bool, *StepError) {
	if err := o.run(); err != nil {
		return 0, false, unrecoverableError("trustregionbackwardstep: forward/backward pass failed: %v", err)
	}

	lossValue, err := scalarOf(lossNode)
	if err != nil {
		return 0, false, unrecoverableError("trustregionbackwardstep: %v", err)
	}
	distValue, err := scalarOf(distanceNode)
	if err != nil {
		return 0, false, unrecoverableError("trustregionbackwardstep: %v", err)
	}

	if math.IsNaN(lossValue) || math.IsNaN(distValue) {
		if logger != nil {
			logger.Log(stats.MustId("nan_constraint"), stats.Count(1))
		}
		return lossValue, false, recoverableError("trustregionbackwardstep: NaN loss or constraint, step skipped")
	}

	if distValue > maxDistance {
		return lossValue, false, nil
	}

	if err := o.Solver.Step(o.Model); err != nil {
		return lossValue, false, unrecoverableError("trustregionbackwardstep: solver step failed: %v", err)
	}
	return lossValue, true, nil
}
