package critic

import (
	"math"
	"testing"

	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/timestep"
)

func step(obs space.Element, reward float64, kind timestep.Kind, interrupt space.Element) timestep.PartialStep[space.Element, space.Element, float64] {
	return timestep.PartialStep[space.Element, space.Element, float64]{
		Observation: obs, Feedback: reward, NextKind: kind, InterruptState: interrupt,
	}
}

func TestReturnCriticDiscountsWithinAnEpisode(t *testing.T) {
	c := &ReturnCritic{Gamma: 0.5}
	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		step(0, 1, timestep.Continue, nil),
		step(1, 1, timestep.Terminate, nil),
	})
	values, err := c.Values(packed, nil)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := []float64{1 + 0.5*1, 1}
	for i := range want {
		if math.Abs(values[i]-want[i]) > 1e-9 {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want[i])
		}
	}
}

func TestReturnCriticBootstrapsOnInterrupt(t *testing.T) {
	c := &ReturnCritic{
		Gamma:          0.9,
		BootstrapValue: func(episode []float64) float64 { return 100 },
	}
	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		step(0, 1, timestep.Interrupt, 1),
	})
	values, err := c.Values(packed, nil)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := 1 + 0.9*100
	if math.Abs(values[0]-want) > 1e-9 {
		t.Errorf("values[0] = %v, want %v", values[0], want)
	}
}

func TestReturnCriticNoBootstrapFnDropsInterruptedTail(t *testing.T) {
	c := &ReturnCritic{Gamma: 0.9}
	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		step(0, 5, timestep.Interrupt, 1),
	})
	values, err := c.Values(packed, nil)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want the interrupted episode dropped entirely (no BootstrapValue configured)", values)
	}
}

func TestReturnCriticNoBootstrapFnKeepsOtherEpisodesWhenOneIsDropped(t *testing.T) {
	c := &ReturnCritic{Gamma: 0.5}
	packed := buffer.Pack([]timestep.PartialStep[space.Element, space.Element, float64]{
		step(0, 1, timestep.Terminate, nil),
		step(0, 5, timestep.Interrupt, 1),
	})
	values, err := c.Values(packed, nil)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := []float64{1}
	if len(values) != len(want) || values[0] != want[0] {
		t.Errorf("values = %v, want %v (only the terminated episode's step)", values, want)
	}
}

func TestDiscountCumSumMatchesDirectComputation(t *testing.T) {
	x := []float64{1, 2, 3}
	got := discountCumSum(x, 0.5)
	want := []float64{
		1 + 0.5*2 + 0.25*3,
		2 + 0.5*3,
		3,
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
