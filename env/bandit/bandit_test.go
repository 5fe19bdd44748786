package bandit

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/timestep"
)

func TestDeterministicBanditPaysCorrectArm(t *testing.T) {
	b := NewDeterministicBandit([]float64{1, 2, 3})
	rng := rand.New(rand.NewSource(0))
	succ, reward := b.Step(0, 1, rng, nil)
	if reward != 2 {
		t.Errorf("reward = %v, want 2", reward)
	}
	if succ.Kind() != timestep.Terminate {
		t.Errorf("kind = %v, want Terminate", succ.Kind())
	}
}

func TestOneHotBanditsExactlyOneArmPays(t *testing.T) {
	d := NewOneHotBandits(5, 10)
	rng := rand.New(rand.NewSource(1))
	e := d.SampleEnvironment(rng).(*DeterministicBandit)
	nonZero := 0
	for _, r := range e.Rewards {
		if r != 0 {
			nonZero++
			if r != 10 {
				t.Errorf("paying arm reward = %v, want 10", r)
			}
		}
	}
	if nonZero != 1 {
		t.Errorf("expected exactly one non-zero arm, got %d", nonZero)
	}
}
