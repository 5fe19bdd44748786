package metaagent

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/env/bandit"
	"github.com/arborrl/corerl/meta"
	"github.com/arborrl/corerl/space"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
)

// countingAgent is a minimal agent.Agent[int, int, int, float64] stand-in
// that always acts 0 and records how many times it was built and how
// many online transitions it was handed, so the tests below can assert
// on ResettingMetaAgent's rebuild-per-trial and per-step-update wiring
// without needing a real learning agent.
type countingAgent struct {
	updates *int
}

func (a countingAgent) Actor(agent.Mode) agent.Actor[int, int] { return a }
func (a countingAgent) InitialState(rng *rand.Rand) agent.EpisodeState { return nil }
func (a countingAgent) Act(state agent.EpisodeState, obs int, rng *rand.Rand) (int, agent.EpisodeState) {
	return 0, nil
}
func (a countingAgent) MinUpdateSize() buffer.DataBound {
	return buffer.DataBound{MinSteps: 1, SlackSteps: 0}
}
func (a countingAgent) Buffer() buffer.History[int, int, float64] {
	return buffer.NewSliceHistory[int, int, float64](a.MinUpdateSize())
}
func (a countingAgent) BatchUpdate(buffers []buffer.History[int, int, float64], logger stats.Logger) error {
	for _, b := range buffers {
		*a.updates += len(b.Drain())
	}
	return nil
}

func TestResettingMetaAgentRebuildsOncePerTrialAndLearnsOnline(t *testing.T) {
	var builds, updates int
	factory := func(rng *rand.Rand) agent.Agent[int, int, int, float64] {
		builds++
		return countingAgent{updates: &updates}
	}

	dist := bandit.NewOneHotBandits(3, 1)
	outerEnv := meta.NewEnv[int, int, int, float64](dist)
	metaAgent := New[int, int, int, float64](factory, space.NewIndex(3))

	rng := rand.New(rand.NewSource(0))
	actor := metaAgent.Actor(agent.Train)

	state := outerEnv.InitialState(rng)
	obs := outerEnv.Observe(state, rng)
	actorState := actor.InitialState(rng)

	for i := 0; i < 5; i++ {
		var action int
		action, actorState = actor.Act(actorState, obs, rng)
		successor, _ := outerEnv.Step(state, action, rng, nil)
		state, _ = successor.State()
		obs = outerEnv.Observe(state, rng)
	}

	if builds != 1 {
		t.Errorf("factory called %d times, want exactly 1 (rebuilt only at InitialState)", builds)
	}
	// Each one-step inner episode spans two outer steps: the step that
	// terminates it, then the step that starts the next one (PrevStep
	// absent). Five outer steps run inner episodes at steps 0, 2 and 4;
	// a transition is fed on the step after it, so steps 1 and 3 feed
	// one each and the transition from step 4 is not yet fed.
	if updates != 2 {
		t.Errorf("inner agent received %d online transitions, want 2", updates)
	}
}

func TestResettingMetaAgentOuterBatchUpdateIsANoOp(t *testing.T) {
	factory := func(rng *rand.Rand) agent.Agent[int, int, int, float64] {
		return countingAgent{updates: new(int)}
	}
	metaAgent := New[int, int, int, float64](factory, space.NewIndex(2))

	history := metaAgent.Buffer()
	history.Push(timestep.PartialStep[meta.Observation[int, int, float64], int, float64]{
		NextKind: timestep.Terminate,
	})
	if err := metaAgent.BatchUpdate([]buffer.History[meta.Observation[int, int, float64], int, float64]{history}, nil); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if history.Len() != 0 {
		t.Errorf("outer BatchUpdate should drain its buffers, Len() = %d", history.Len())
	}
}
