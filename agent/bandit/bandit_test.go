package bandit

import (
	"testing"

	"golang.org/x/exp/rand"

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

func pushReward(h buffer.History[space.Element, space.Element, float64], action int, reward float64) {
	h.Push(timestep.PartialStep[space.Element, space.Element, float64]{
		Observation: 0, Action: action, Feedback: reward, NextKind: timestep.Terminate,
	})
}

func TestUCB1PullsEveryArmOnceBeforeUsingTheBound(t *testing.T) {
	u := NewUCB1(observations(t), 3, 2.0)
	actor := u.Actor(0)
	rng := rand.New(rand.NewSource(0))
	state := actor.InitialState(rng)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		act, _ := actor.Act(state, 0, rng)
		seen[act.(int)] = true

		history := u.Buffer()
		pushReward(history, act.(int), 1)
		if err := u.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{history}, nil); err != nil {
			t.Fatalf("BatchUpdate: %v", err)
		}
	}
	if len(seen) != 3 {
		t.Errorf("expected all 3 arms pulled once before the bound applies, saw %v", seen)
	}
}

func TestUCB1PrefersTheHigherMeanArmAfterWarmup(t *testing.T) {
	u := NewUCB1(observations(t), 2, 0.0) // c=0 collapses the bound to pure mean
	actor := u.Actor(0)
	rng := rand.New(rand.NewSource(0))

	warm := u.Buffer()
	pushReward(warm, 0, 1)
	pushReward(warm, 1, 10)
	if err := u.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{warm}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}

	act, _ := actor.Act(actor.InitialState(rng), 0, rng)
	if act.(int) != 1 {
		t.Errorf("UCB1 with c=0 chose action %v, want the higher-mean arm 1", act)
	}
}

func TestBetaThompsonAccumulatesCountsByThreshold(t *testing.T) {
	b := NewBetaThompson(observations(t), 2, 0, 1, 4)
	history := b.Buffer()
	pushReward(history, 0, 0.9) // above threshold 0.5
	pushReward(history, 1, 0.1) // below threshold
	if err := b.BatchUpdate([]buffer.History[space.Element, space.Element, float64]{history}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if b.highCounts[0][0] != 1 || b.lowCounts[0][0] != 0 {
		t.Errorf("arm 0 counts = (%v high, %v low), want (1, 0)", b.highCounts[0][0], b.lowCounts[0][0])
	}
	if b.highCounts[0][1] != 0 || b.lowCounts[0][1] != 1 {
		t.Errorf("arm 1 counts = (%v high, %v low), want (0, 1)", b.highCounts[0][1], b.lowCounts[0][1])
	}
}
