package chain

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestRingWrapsAround(t *testing.T) {
	r := NewRing(4)
	rng := rand.New(rand.NewSource(0))
	succ, reward := r.Step(0, 0, rng, nil)
	if reward != 0 {
		t.Errorf("reward = %v, want 0", reward)
	}
	s, ok := succ.State()
	if !ok || s != 3 {
		t.Errorf("state = %v, %v, want 3, true", s, ok)
	}
}

func TestRingNeverTerminates(t *testing.T) {
	r := NewRing(3)
	rng := rand.New(rand.NewSource(0))
	s := r.InitialState(rng)
	for i := 0; i < 100; i++ {
		succ, _ := r.Step(s, 1, rng, nil)
		if succ.Done() {
			t.Fatalf("Ring should never terminate, got Done at step %d", i)
		}
		s, _ = succ.State()
	}
}
