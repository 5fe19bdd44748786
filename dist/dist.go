// Package dist implements batched parameterized distributions: the
// objects a space.Distributions capability hands back from a parameter
// matrix, supporting sampling, log-probability, entropy, and KL
// divergence. Each kind computes these directly over plain float64 rows
// (Categorical samples through gonum.org/v1/gonum/stat/distuv), behind
// one small interface so a caller never needs to know which concrete
// distribution kind it is driving.
package dist

import "golang.org/x/exp/rand"

// Batch is a batch of distribution instances, one per row of the
// parameter matrix that produced it.
type Batch interface {
	// Len returns the number of distribution instances in the batch.
	Len() int

	// Sample draws one element per batch instance.
	Sample(rng *rand.Rand) [][]float64

	// LogProb returns the log-probability of x under each batch
	// instance. len(x) must equal Len().
	LogProb(x [][]float64) []float64

	// Entropy returns the entropy of each batch instance.
	Entropy() []float64

	// KL returns the KL divergence KL(p || q) for each batch instance,
	// where p is the receiver and q is other. Both must be the same
	// concrete kind and batch length, else an error is returned.
	KL(other Batch) ([]float64, error)
}
