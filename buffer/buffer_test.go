package buffer

import (
	"testing"

	"github.com/arborrl/corerl/timestep"
)

func step(done bool) timestep.PartialStep[int, int, float64] {
	kind := timestep.Continue
	if done {
		kind = timestep.Terminate
	}
	return timestep.PartialStep[int, int, float64]{NextKind: kind}
}

func TestSliceHistoryFullnessThresholds(t *testing.T) {
	h := NewSliceHistory[int, int, float64](DataBound{MinSteps: 2, SlackSteps: 1})
	if f := h.Push(step(false)); f != BelowSoft {
		t.Errorf("step 1: got %v, want BelowSoft", f)
	}
	if f := h.Push(step(false)); f != AtSoftBoundary {
		t.Errorf("step 2: got %v, want AtSoftBoundary", f)
	}
	if f := h.Push(step(false)); f != AtHardBoundary {
		t.Errorf("step 3: got %v, want AtHardBoundary", f)
	}
}

func TestDrainEmptiesBuffer(t *testing.T) {
	h := NewSliceHistory[int, int, float64](DataBound{MinSteps: 10, SlackSteps: 0})
	h.Push(step(false))
	h.Push(step(true))
	steps := h.Drain()
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if h.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", h.Len())
	}
}

func TestPackSplitsOnEpisodeDone(t *testing.T) {
	steps := []timestep.PartialStep[int, int, float64]{
		step(false), step(true), step(false), step(false),
	}
	p := Pack(steps)
	if p.NumEpisodes() != 2 {
		t.Fatalf("NumEpisodes() = %d, want 2", p.NumEpisodes())
	}
	if len(p.Episode(0)) != 2 {
		t.Errorf("len(Episode(0)) = %d, want 2", len(p.Episode(0)))
	}
	if len(p.Episode(1)) != 2 {
		t.Errorf("len(Episode(1)) = %d, want 2 (truncated trailing episode)", len(p.Episode(1)))
	}
}
