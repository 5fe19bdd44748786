// Package chain implements small finite-MDP environments shaped like a
// chain or ring of states, used as fixtures exercising non-trivial
// transition structure (as opposed to bandit's single-state dynamics).
//
// Grounded in spirit on the tabular QLearning_test.go fixtures.
package chain

import (
	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// Ring is a finite MDP over N states arranged in a cycle. Action 0
// moves counter-clockwise, action 1 clockwise; every step pays 0 reward
// and never terminates on its own — the scenario-4 fixture uses
// Ring together with a step-limit wrapper to check that an
// undiscounted, zero-reward ring never produces a non-zero return
// regardless of episode length.
type Ring struct {
	N int
}

func NewRing(n int) *Ring {
	if n < 1 {
		panic("chain: NewRing: n must be >= 1")
	}
	return &Ring{N: n}
}

func (r *Ring) InitialState(rng *rand.Rand) int { return 0 }

func (r *Ring) Observe(s int, rng *rand.Rand) int { return s }

func (r *Ring) Step(s int, a int, rng *rand.Rand, logger stats.Logger) (timestep.Successor[int], float64) {
	var next int
	switch a {
	case 0:
		next = (s - 1 + r.N) % r.N
	case 1:
		next = (s + 1) % r.N
	default:
		panic("chain: Ring.Step: action must be 0 or 1")
	}
	return timestep.NewContinue(next), 0
}

func (r *Ring) Structure() env.Structure {
	return env.Structure{
		Observation: space.NewIndex(r.N),
		Action:      space.NewIndex(2),
		Feedback:    space.NewInterval(0, 0),
		Discount:    1.0,
	}
}
