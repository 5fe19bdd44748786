// Package buffer implements the episodic history buffer and its packed
// trajectory representation, the data an agent's BatchUpdate consumes.
//
// Grounded on the expreplay/ExpReplay.go cache shape (ordered
// storage of transitions) and buffer/gae/GAE.go's per-path
// pathStartIdx/currentPos bookkeeping, generalized from a fixed-size
// replay cache into the soft/hard-threshold push contract and a
// variable-length-episode packed batch.
package buffer

import (
	"github.com/arborrl/corerl/timestep"
)

// Fullness reports how close a History is to its configured bounds,
// returned from Push so a worker loop can decide whether to keep
// stepping or hand the buffer to the trainer.
type Fullness int

const (
	// BelowSoft: keep collecting steps.
	BelowSoft Fullness = iota
	// AtSoftBoundary: the soft threshold is met; stop at the next
	// convenient point (an episode boundary), but it is fine to keep
	// going.
	AtSoftBoundary
	// AtHardBoundary: the hard threshold is met; the caller must stop
	// immediately, even mid-episode.
	AtHardBoundary
)

// DataBound configures when a worker's buffer is considered ready for
// a batch update: MinSteps is a soft floor (met at an episode boundary
// once at least this many steps have been collected), SlackSteps is
// the additional budget before the hard ceiling MinSteps+SlackSteps
// forces an immediate stop.
type DataBound struct {
	MinSteps   int
	SlackSteps int
}

func (b DataBound) SoftThreshold() int { return b.MinSteps }
func (b DataBound) HardThreshold() int { return b.MinSteps + b.SlackSteps }

// History accumulates PartialSteps for one worker between batch
// updates.
type History[O, A, F any] interface {
	// Push appends one step and reports the buffer's fullness against
	// its configured DataBound.
	Push(step timestep.PartialStep[O, A, F]) Fullness
	// Drain empties the buffer and returns everything collected since
	// the last Drain.
	Drain() []timestep.PartialStep[O, A, F]
	// Len reports the number of steps currently buffered.
	Len() int
}

// SliceHistory is the straightforward History implementation: an
// append-only slice checked against a DataBound on every Push. Grounded
// on expreplay/ExpReplay.go's ordered cache, simplified since a
// worker's history buffer (unlike a replay cache) is drained rather
// than overwritten in a ring.
type SliceHistory[O, A, F any] struct {
	bound DataBound
	steps []timestep.PartialStep[O, A, F]
}

func NewSliceHistory[O, A, F any](bound DataBound) *SliceHistory[O, A, F] {
	return &SliceHistory[O, A, F]{bound: bound}
}

func (h *SliceHistory[O, A, F]) Push(step timestep.PartialStep[O, A, F]) Fullness {
	h.steps = append(h.steps, step)
	n := len(h.steps)
	switch {
	case n >= h.bound.HardThreshold():
		return AtHardBoundary
	case n >= h.bound.SoftThreshold() && step.EpisodeDone():
		return AtSoftBoundary
	case n >= h.bound.SoftThreshold():
		return AtSoftBoundary
	default:
		return BelowSoft
	}
}

func (h *SliceHistory[O, A, F]) Drain() []timestep.PartialStep[O, A, F] {
	out := h.steps
	h.steps = nil
	return out
}

func (h *SliceHistory[O, A, F]) Len() int { return len(h.steps) }
