package critic

import (
	"testing"

	G "gorgonia.org/gorgonia"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/initwfn"
	"github.com/arborrl/corerl/network"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/timestep"
)

func newZeroValueFn(t *testing.T, batch int) network.Module {
	t.Helper()
	g := G.NewGraph()
	init, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatalf("NewZeroes: %v", err)
	}
	net, err := network.NewSingleHeadMLP(3, batch, g, []int{4}, []bool{true}, init.InitWFn(), []*network.Activation{network.ReLU()})
	if err != nil {
		t.Fatalf("NewSingleHeadMLP: %v", err)
	}
	return network.NewFeedForwardModule(net)
}

// A value function whose weights are all zero predicts 0 everywhere, so
// GAECritic's advantage reduces to the plain discounted-return delta
// chain with every V̂ term dropped — an easy-to-hand-check fixture.
func TestGAECriticWithZeroValueFnMatchesReturnDeltas(t *testing.T) {
	valueFn := newZeroValueFn(t, 2)
	c := &GAECritic{
		ValueFn:     valueFn,
		ObsSpace:    space.NewIndex(3),
		Gamma:       0.9,
		Lambda:      1.0,
		Standardize: false,
	}

	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		{Observation: 0, Feedback: 1, NextKind: timestep.Continue},
		{Observation: 1, Feedback: 2, NextKind: timestep.Terminate},
	})

	values, err := c.Values(packed, nil)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	// deltas: r0 + gamma*V(s1) - V(s0) = 1, r1 + gamma*0 - V(s1) = 2;
	// GAE(lambda=1) is the plain discounted sum of deltas.
	want := []float64{1 + 0.9*2, 2}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestGAECriticTargetsRecombineAdvantageAndPredictedValue(t *testing.T) {
	valueFn := newZeroValueFn(t, 1)
	c := NewGAECritic(valueFn, space.NewIndex(3), 0.9, 1.0)
	c.Standardize = false

	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		{Observation: 0, Feedback: 5, NextKind: timestep.Terminate},
	})

	targets, err := c.Targets(packed, nil)
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	// With a zero value function, predicted value is 0, so the target
	// collapses to the raw advantage (5).
	if targets[0] != 5 {
		t.Errorf("targets[0] = %v, want 5", targets[0])
	}
}
