package qlearning

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/timestep"
)

func observations(t *testing.T) space.Finite {
	t.Helper()
	obs, err := space.NewFinite([]int{0})
	if err != nil {
		t.Fatalf("NewFinite: %v", err)
	}
	return obs
}

func TestBatchUpdateBootstrapsOnInterrupt(t *testing.T) {
	a := New(observations(t), 2, 0.5, 0.9, 0.0)
	a.Table[0][1] = 10 // bootstrap target for the interrupted successor

	history := buffer.NewSliceHistory[space.Element, space.Element, float64](a.Bound)
	history.Push(timestep.PartialStep[space.Element, space.Element, float64]{
		Observation: 0, Action: 0, Feedback: 1,
		NextKind: timestep.Interrupt, InterruptState: 0,
	})

	if err := a.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{history}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}

	want := 0.5 * (1 + 0.9*10)
	if got := a.Table[0][0]; got != want {
		t.Errorf("Table[0][0] = %v, want %v", got, want)
	}
}

func TestBatchUpdateDropsBootstrapOnTerminate(t *testing.T) {
	a := New(observations(t), 2, 1.0, 0.9, 0.0)

	history := buffer.NewSliceHistory[space.Element, space.Element, float64](a.Bound)
	history.Push(timestep.PartialStep[space.Element, space.Element, float64]{
		Observation: 0, Action: 0, Feedback: 3, NextKind: timestep.Terminate,
	})

	if err := a.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{history}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if got := a.Table[0][0]; got != 3 {
		t.Errorf("Table[0][0] = %v, want 3 (no bootstrap term)", got)
	}
}

func TestEvalActorIsGreedy(t *testing.T) {
	a := New(observations(t), 3, 0.5, 0.9, 1.0) // epsilon=1 for the train actor
	a.Table[0] = []float64{0, 5, 1}

	actor := a.Actor(agent.Eval)
	rng := rand.New(rand.NewSource(0))
	state := actor.InitialState(rng)
	for i := 0; i < 20; i++ {
		act, _ := actor.Act(state, 0, rng)
		if act.(int) != 1 {
			t.Fatalf("eval actor chose action %v, want the greedy action 1", act)
		}
	}
}
