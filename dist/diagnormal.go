package dist

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// DiagNormal is a batch of diagonal-covariance multivariate normal
// distributions, parameterized by [mean(1..d), logStd(1..d)] per batch
// instance (2d columns) — the standard reparameterization used by
// continuous-action Gaussian policies, grounded on
// agent/linear/continuous/policy/Gaussian.go and
// agent/nonlinear/continuous/policy/GaussianTreeMLP.go, which both drive a
// diagonal Gaussian from a mean/log-std head pair.
type DiagNormal struct {
	mean   [][]float64
	std    [][]float64
	logStd [][]float64
}

// NewDiagNormal builds a DiagNormal batch from params rows of length 2d:
// the first d columns are means, the last d are log standard deviations.
func NewDiagNormal(params [][]float64) (*DiagNormal, error) {
	n := len(params)
	out := &DiagNormal{
		mean:   make([][]float64, n),
		std:    make([][]float64, n),
		logStd: make([][]float64, n),
	}
	for i, row := range params {
		if len(row)%2 != 0 {
			return nil, fmt.Errorf("diagnormal: row %d has odd length %d", i, len(row))
		}
		d := len(row) / 2
		out.mean[i] = append([]float64(nil), row[:d]...)
		out.logStd[i] = append([]float64(nil), row[d:]...)
		out.std[i] = make([]float64, d)
		for j, ls := range out.logStd[i] {
			out.std[i][j] = math.Exp(ls)
		}
	}
	return out, nil
}

func (n *DiagNormal) Len() int { return len(n.mean) }

func (n *DiagNormal) Sample(rng *rand.Rand) [][]float64 {
	out := make([][]float64, len(n.mean))
	for i, mean := range n.mean {
		x := make([]float64, len(mean))
		for j := range mean {
			x[j] = mean[j] + n.std[i][j]*rng.NormFloat64()
		}
		out[i] = x
	}
	return out
}

const halfLog2Pi = 0.5 * 1.8378770664093453 // 0.5*log(2*pi)

func (n *DiagNormal) LogProb(x [][]float64) []float64 {
	out := make([]float64, len(n.mean))
	for i, mean := range n.mean {
		lp := 0.0
		for j := range mean {
			z := (x[i][j] - mean[j]) / n.std[i][j]
			lp += -0.5*z*z - n.logStd[i][j] - halfLog2Pi
		}
		out[i] = lp
	}
	return out
}

func (n *DiagNormal) Entropy() []float64 {
	out := make([]float64, len(n.mean))
	for i, logStd := range n.logStd {
		h := 0.0
		for _, ls := range logStd {
			h += ls + 0.5 + 0.5*1.8378770664093453
		}
		out[i] = h
	}
	return out
}

func (n *DiagNormal) KL(other Batch) ([]float64, error) {
	o, ok := other.(*DiagNormal)
	if !ok {
		return nil, fmt.Errorf("diagnormal: KL: other is %T, not *DiagNormal", other)
	}
	if len(o.mean) != len(n.mean) {
		return nil, fmt.Errorf("diagnormal: KL: batch size mismatch %d != %d",
			len(n.mean), len(o.mean))
	}
	out := make([]float64, len(n.mean))
	for i := range n.mean {
		kl := 0.0
		for j := range n.mean[i] {
			varP := n.std[i][j] * n.std[i][j]
			varQ := o.std[i][j] * o.std[i][j]
			meanDiff := n.mean[i][j] - o.mean[i][j]
			kl += o.logStd[i][j] - n.logStd[i][j] +
				(varP+meanDiff*meanDiff)/(2*varQ) - 0.5
		}
		out[i] = kl
	}
	return out, nil
}
