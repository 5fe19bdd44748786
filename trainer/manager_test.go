package trainer

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent/qlearning"
	"github.com/arborrl/corerl/agent/random"
	banditenv "github.com/arborrl/corerl/env/bandit"
	"github.com/arborrl/corerl/env/wrap"
	"github.com/arborrl/corerl/space"
)

func TestManagerRunsRandomAgentAgainstDeterministicBandit(t *testing.T) {
	inner := banditenv.NewDeterministicBandit([]float64{1, 2, 3})
	environment := wrap.NewElementwise[int, int, int, float64](inner)

	a := random.New(space.NewIndex(3))

	m := New[int, space.Element, space.Element, float64](Config{
		NumPeriods:     3,
		NumThreads:     2,
		MinWorkerSteps: 4,
	}, nil)

	if err := m.Run(a, environment, rand.NewSource(0)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestManagerRunsTabularQLearningAgainstDeterministicBandit(t *testing.T) {
	inner := banditenv.NewDeterministicBandit([]float64{0, 0, 5})
	environment := wrap.NewElementwise[int, int, int, float64](inner)

	observation, err := space.NewFinite([]int{0})
	if err != nil {
		t.Fatalf("NewFinite: %v", err)
	}
	a := qlearning.New(observation, 3, 0.5, 0.99, 0.1)

	m := New[int, space.Element, space.Element, float64](Config{
		NumPeriods:     10,
		NumThreads:     2,
		MinWorkerSteps: 8,
	}, nil)

	if err := m.Run(a, environment, rand.NewSource(1)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	q := a.Table
	if q[0][2] <= q[0][0] || q[0][2] <= q[0][1] {
		t.Errorf("expected learned Q value for best arm (2) to exceed the others, got %v", q[0])
	}
}

func TestManagerRunsAcrossMultiplePeriodsWithFourWorkers(t *testing.T) {
	inner := banditenv.NewDeterministicBandit([]float64{1})
	environment := wrap.NewElementwise[int, int, int, float64](inner)
	a := random.New(space.NewIndex(1))

	m := New[int, space.Element, space.Element, float64](Config{
		NumPeriods:     5,
		NumThreads:     4,
		MinWorkerSteps: 2,
	}, nil)

	if err := m.Run(a, environment, rand.NewSource(2)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
