// Package critic implements value estimation over packed trajectory
// batches: a plain discounted-return critic and a GAE(λ) critic wrapping
// a learned value function.
//
// Grounded on buffer/gae/GAE.go's discountCumSum/FinishPath pair,
// generalized from a fixed-size single-buffer form to buffer.Packed's
// multi-episode, variable-length batches, and from a boolean
// done-vs-not-done bootstrap choice to the Continue/Terminate/Interrupt
// successor rule (only Terminate drops the bootstrap term; Interrupt
// still bootstraps from the estimated value at the cut-off state).
package critic

import (
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Critic computes a per-step value estimate over a packed trajectory
// batch.
type Critic[O, A, F any] interface {
	// Values returns one value per step in packed.Steps, in the same
	// order, EXCEPT an implementation with no way to bootstrap an
	// Interrupted episode's tail (see ReturnCritic.BootstrapValue) may
	// return fewer values than len(packed.Steps), having dropped that
	// whole episode's steps rather than invent a value for them.
	// Callers that feed Values' output back into a batch alongside
	// packed.Steps itself (rather than using it standalone) must check
	// for this case.
	Values(packed buffer.Packed[O, A, F], logger stats.Logger) ([]float64, error)
}

// discountCumSum computes, for each position i, sum_{k>=i} gamma^(k-i)
// x[k] — the same recurrence as buffer/gae/GAE.go's discountCumSum, but
// a direct backward accumulation instead of building a full discount
// matrix per call.
func discountCumSum(x []float64, gamma float64) []float64 {
	out := make([]float64, len(x))
	running := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		running = x[i] + gamma*running
		out[i] = running
	}
	return out
}

// bootstrapValue returns the value to bootstrap from at an interrupted
// episode's final step, given a BootstrapValue estimate at its cutoff
// state. Only called once the caller has already confirmed a
// BootstrapValue function is available; a Terminate tail never
// bootstraps (future value is defined to be 0 there).
func bootstrapValue(lastKind timestep.Kind, interruptValue float64) float64 {
	if lastKind == timestep.Interrupt {
		return interruptValue
	}
	return 0
}

// ReturnCritic computes the plain discounted-return-to-go for each
// step, with no function approximation: the value of step t is the
// discounted sum of feedback from t to the end of its episode, plus a
// bootstrap term if the episode was interrupted rather than terminated.
// Feedback must be a scalar reward per step; non-scalar feedback needs
// a GAECritic with an explicit reward projection instead.
type ReturnCritic struct {
	Gamma float64
	// BootstrapValue, if non-nil, estimates the value at an
	// interrupted episode's cutoff state given its feedback-so-far.
	// If nil, Values drops every episode that ends in Interrupt from
	// its result instead of bootstrapping it.
	BootstrapValue func(episode []float64) float64
}

// Values computes the discounted return-to-go for each step, dropping
// any episode whose tail is Interrupt with no BootstrapValue function
// configured: with no estimate of the cutoff state's value, treating it
// as 0 would silently equate an Interrupt (future value = bootstrap
// estimate) with a Terminate (future value = 0), the exact conflation a
// value estimator must never make. Such an episode's steps carry no
// value in the returned slice at all, rather than an invented one.
func (c *ReturnCritic) Values(packed buffer.Packed[space.Element, space.Element, float64], logger stats.Logger) ([]float64, error) {
	out := make([]float64, 0, len(packed.Steps))
	for i := 0; i < packed.NumEpisodes(); i++ {
		ep := packed.Episode(i)
		last := ep[len(ep)-1]

		if last.NextKind == timestep.Interrupt && c.BootstrapValue == nil {
			continue
		}

		rewards := make([]float64, len(ep))
		for j, s := range ep {
			rewards[j] = s.Feedback
		}

		boot := 0.0
		if c.BootstrapValue != nil {
			boot = bootstrapValue(last.NextKind, c.BootstrapValue(rewards))
		}
		rewards = append(rewards, boot)
		values := discountCumSum(rewards, c.Gamma)
		out = append(out, values[:len(values)-1]...)
	}
	return out, nil
}
