package random

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/timestep"
)

func TestActorSamplesWithinActionSpace(t *testing.T) {
	a := New(space.NewIndex(4))
	actor := a.Actor(0)
	rng := rand.New(rand.NewSource(0))
	state := actor.InitialState(rng)

	for i := 0; i < 50; i++ {
		act, next := actor.Act(state, 0, rng)
		state = next
		n := act.(int)
		if n < 0 || n >= 4 {
			t.Fatalf("sampled action %d outside [0, 4)", n)
		}
	}
}

func TestBatchUpdateDrainsWithoutLearning(t *testing.T) {
	a := New(space.NewIndex(2))
	history := a.Buffer()
	history.Push(timestep.PartialStep[space.Element, space.Element, float64]{
		Observation: 0, Action: 0, Feedback: 1, NextKind: timestep.Terminate,
	})
	if err := a.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{history}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if history.Len() != 0 {
		t.Errorf("Buffer should be drained by BatchUpdate, Len() = %d", history.Len())
	}
}
