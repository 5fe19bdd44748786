package dist

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Categorical is a batch of categorical distributions over {0..k-1},
// parameterized by unnormalized logits (one row per batch instance, k
// columns). Grounded on the softmax-over-logits construction in
// agent/nonlinear/continuous/policy/CategoricalMLP.go, re-expressed over
// plain float64 rows instead of gorgonia nodes since its callers (the
// finite spaces' Distribution methods and the actor-critic rollout
// actor) need no gradients. This package has no gorgonia-node variant.
type Categorical struct {
	probs [][]float64 // softmax-normalized, one row per batch instance
}

// NewCategorical builds a Categorical batch from unnormalized logits,
// one row per batch instance.
func NewCategorical(logits [][]float64) *Categorical {
	probs := make([][]float64, len(logits))
	for i, row := range logits {
		probs[i] = softmax(row)
	}
	return &Categorical{probs: probs}
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	max := floats.Max(logits)
	sum := 0.0
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	floats.Scale(1/sum, out)
	return out
}

func (c *Categorical) Len() int { return len(c.probs) }

func (c *Categorical) Sample(rng *rand.Rand) [][]float64 {
	out := make([][]float64, len(c.probs))
	for i, p := range c.probs {
		d := distuv.NewCategorical(p, rng)
		out[i] = []float64{d.Rand()}
	}
	return out
}

func (c *Categorical) LogProb(x [][]float64) []float64 {
	out := make([]float64, len(c.probs))
	for i, p := range c.probs {
		k := int(x[i][0])
		out[i] = math.Log(p[k] + 1e-300)
	}
	return out
}

func (c *Categorical) Entropy() []float64 {
	out := make([]float64, len(c.probs))
	for i, p := range c.probs {
		h := 0.0
		for _, pk := range p {
			if pk > 0 {
				h -= pk * math.Log(pk)
			}
		}
		out[i] = h
	}
	return out
}

func (c *Categorical) KL(other Batch) ([]float64, error) {
	o, ok := other.(*Categorical)
	if !ok {
		return nil, fmt.Errorf("categorical: KL: other is %T, not *Categorical", other)
	}
	if len(o.probs) != len(c.probs) {
		return nil, fmt.Errorf("categorical: KL: batch size mismatch %d != %d",
			len(c.probs), len(o.probs))
	}
	out := make([]float64, len(c.probs))
	for i := range c.probs {
		kl := 0.0
		for k, pk := range c.probs[i] {
			if pk <= 0 {
				continue
			}
			kl += pk * math.Log(pk/(o.probs[i][k]+1e-300))
		}
		out[i] = kl
	}
	return out, nil
}
