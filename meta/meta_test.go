package meta

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/env/bandit"
)

func TestEnvFlagsInnerTerminationWithoutEndingOuterEpisode(t *testing.T) {
	dist := bandit.NewOneHotBandits(3, 1)
	e := NewEnv[int, int, int, float64](dist)
	rng := rand.New(rand.NewSource(0))

	s := e.InitialState(rng)
	succ, _ := e.Step(s, 0, rng, nil)
	next, ok := succ.State()
	if !ok {
		t.Fatalf("expected a continuing successor")
	}
	if !next.state.EpisodeDone {
		t.Errorf("EpisodeDone should be true right after an inner bandit episode ends")
	}
	// Outer episode itself never ends on an inner boundary.
	if succ.Done() {
		t.Errorf("outer MetaEnv episode should not end on an inner episode boundary")
	}
}

func TestTrialLimitInterruptsAfterMaxEpisodes(t *testing.T) {
	dist := bandit.NewOneHotBandits(2, 1)
	e := NewEnv[int, int, int, float64](dist)
	trial := NewTrialLimit(e, 2)
	rng := rand.New(rand.NewSource(0))

	s := trial.InitialState(rng)
	interrupted := false
	for i := 0; i < 10 && !interrupted; i++ {
		result, _ := trial.Step(s, 0, rng, nil)
		if result.Kind().String() == "Interrupt" {
			interrupted = true
			break
		}
		s, _ = result.State()
	}
	if !interrupted {
		t.Errorf("expected TrialLimit to interrupt within 10 steps of a 2-episode limit")
	}
}
