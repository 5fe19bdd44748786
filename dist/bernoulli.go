package dist

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// Bernoulli is a batch of Bernoulli distributions parameterized by a
// single logit per batch instance (column 0 of the parameter matrix),
// following the same logit convention as Categorical with k=2.
type Bernoulli struct {
	p []float64 // sigmoid(logit), one per batch instance
}

// NewBernoulli builds a Bernoulli batch from per-instance logits.
func NewBernoulli(logits []float64) *Bernoulli {
	p := make([]float64, len(logits))
	for i, l := range logits {
		p[i] = 1 / (1 + math.Exp(-l))
	}
	return &Bernoulli{p: p}
}

func (b *Bernoulli) Len() int { return len(b.p) }

func (b *Bernoulli) Sample(rng *rand.Rand) [][]float64 {
	out := make([][]float64, len(b.p))
	for i, p := range b.p {
		v := 0.0
		if rng.Float64() < p {
			v = 1.0
		}
		out[i] = []float64{v}
	}
	return out
}

func (b *Bernoulli) LogProb(x [][]float64) []float64 {
	out := make([]float64, len(b.p))
	for i, p := range b.p {
		if x[i][0] >= 0.5 {
			out[i] = math.Log(p + 1e-300)
		} else {
			out[i] = math.Log(1-p + 1e-300)
		}
	}
	return out
}

func (b *Bernoulli) Entropy() []float64 {
	out := make([]float64, len(b.p))
	for i, p := range b.p {
		h := 0.0
		if p > 0 {
			h -= p * math.Log(p)
		}
		if p < 1 {
			h -= (1 - p) * math.Log(1-p)
		}
		out[i] = h
	}
	return out
}

func (b *Bernoulli) KL(other Batch) ([]float64, error) {
	o, ok := other.(*Bernoulli)
	if !ok {
		return nil, fmt.Errorf("bernoulli: KL: other is %T, not *Bernoulli", other)
	}
	if len(o.p) != len(b.p) {
		return nil, fmt.Errorf("bernoulli: KL: batch size mismatch %d != %d",
			len(b.p), len(o.p))
	}
	out := make([]float64, len(b.p))
	for i, p := range b.p {
		q := o.p[i]
		kl := 0.0
		if p > 0 {
			kl += p * math.Log(p/(q+1e-300))
		}
		if p < 1 {
			kl += (1 - p) * math.Log((1-p)/(1-q+1e-300))
		}
		out[i] = kl
	}
	return out, nil
}
