package dist

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestCategoricalProbabilitiesSumToOne(t *testing.T) {
	c := NewCategorical([][]float64{{1, 2, 3}, {0, 0, 0}})
	for i, p := range c.probs {
		sum := 0.0
		for _, pk := range p {
			sum += pk
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d: probabilities sum to %v, want 1", i, sum)
		}
	}
}

func TestCategoricalEntropyUniformIsMax(t *testing.T) {
	uniform := NewCategorical([][]float64{{0, 0, 0, 0}})
	peaked := NewCategorical([][]float64{{10, 0, 0, 0}})
	if uniform.Entropy()[0] <= peaked.Entropy()[0] {
		t.Errorf("uniform entropy %v should exceed peaked entropy %v",
			uniform.Entropy()[0], peaked.Entropy()[0])
	}
}

func TestCategoricalKLSelfIsZero(t *testing.T) {
	c := NewCategorical([][]float64{{1, 2, 3}})
	kl, err := c.KL(c)
	if err != nil {
		t.Fatalf("KL: %v", err)
	}
	if math.Abs(kl[0]) > 1e-9 {
		t.Errorf("KL(p||p) = %v, want 0", kl[0])
	}
}

func TestDiagNormalSampleContainsMean(t *testing.T) {
	n, err := NewDiagNormal([][]float64{{0, 0, -10, -10}})
	if err != nil {
		t.Fatalf("NewDiagNormal: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		x := n.Sample(rng)[0]
		if math.Abs(x[0]) > 1 || math.Abs(x[1]) > 1 {
			t.Errorf("sample %v too far from near-deterministic mean", x)
		}
	}
}

func TestBernoulliLogProbMatchesEntropyAtHalf(t *testing.T) {
	b := NewBernoulli([]float64{0})
	lp := b.LogProb([][]float64{{1}})
	if math.Abs(math.Exp(lp[0])-0.5) > 1e-9 {
		t.Errorf("p(1) = %v, want 0.5", math.Exp(lp[0]))
	}
	if math.Abs(b.Entropy()[0]-math.Log(2)) > 1e-9 {
		t.Errorf("entropy = %v, want log(2)", b.Entropy()[0])
	}
}
