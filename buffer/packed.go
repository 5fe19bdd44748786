package buffer

import "github.com/arborrl/corerl/timestep"

// Packed is the packed trajectory representation consumed by the
// Critic and Policy Updater: steps from possibly many episodes of
// possibly different lengths, concatenated episode by episode in
// buffer order, alongside each episode's length (grounded on
// buffer/gae/GAE.go's pathStartIdx/currentPos per-episode slicing,
// generalized here to an explicit length vector instead of two running
// indices valid for only one episode at a time). Steps are not
// interleaved by timestep across episodes, episodes are not sorted by
// length, and no per-timestep batch-sizes vector is kept.
type Packed[O, A, F any] struct {
	// Steps holds every step from every packed episode, concatenated.
	Steps []timestep.PartialStep[O, A, F]
	// EpisodeLengths[i] is the number of steps episode i contributed.
	EpisodeLengths []int
}

// Pack groups a drained slice of steps into per-episode runs, splitting
// at each EpisodeDone() step.
func Pack[O, A, F any](steps []timestep.PartialStep[O, A, F]) Packed[O, A, F] {
	var lengths []int
	start := 0
	for i, s := range steps {
		if s.EpisodeDone() {
			lengths = append(lengths, i-start+1)
			start = i + 1
		}
	}
	if start < len(steps) {
		lengths = append(lengths, len(steps)-start)
	}
	return Packed[O, A, F]{Steps: steps, EpisodeLengths: lengths}
}

// NumEpisodes reports how many episodes (complete or truncated at the
// end of the buffer) this packed batch contains.
func (p Packed[O, A, F]) NumEpisodes() int { return len(p.EpisodeLengths) }

// Episode returns the slice of steps belonging to episode i.
func (p Packed[O, A, F]) Episode(i int) []timestep.PartialStep[O, A, F] {
	start := 0
	for k := 0; k < i; k++ {
		start += p.EpisodeLengths[k]
	}
	return p.Steps[start : start+p.EpisodeLengths[i]]
}
