// Package trainer implements the parallel training loop: a Manager runs
// an Agent against an Environment over synchronized rounds, fanning a
// round's rollout work out across worker goroutines and joining them
// before calling the Agent's batch update.
//
// experiment.Online (experiment/Online.go) runs one
// episode at a time on a single goroutine and steps the agent after
// every transition; this package generalizes that loop to the
// round/worker structure, replacing the per-transition
// Observe/Step calls with each worker filling its own buffer.History
// before the round's one BatchUpdate call. The sync.WaitGroup join
// generalizes the expreplay/ExpReplay.go guard (a WaitGroup
// used there only to serialize access to a shared cache) to its
// textbook fan-out/join use: one Add per worker, one Done per worker,
// Wait before the manager reads the filled buffers. Progress reporting
// reuses experiment/Online.go's github.com/samuelfneumann/progressbar
// usage (New/Display/Increment/AddMessage/Close) against a total of
// num_periods rounds rather than a total step count.
package trainer

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/progressbar"

	"github.com/arborrl/corerl/agent"
	"github.com/arborrl/corerl/buffer"
	"github.com/arborrl/corerl/env"
	"github.com/arborrl/corerl/stats"
	"github.com/arborrl/corerl/timestep"
	"github.com/arborrl/corerl/utils/intutils"
)

// progressBarWidth is the display width of the round progress bar,
// capped to the run's own period count so a short run doesn't draw a
// bar wider than it could ever fill.
const progressBarWidth = 50

// Config configures a Manager's training run.
type Config struct {
	// NumPeriods is how many synchronized rounds to run.
	NumPeriods int
	// NumThreads is how many worker goroutines each round fans out to.
	NumThreads int
	// MinWorkerSteps is the minimum number of steps every worker's
	// buffer should collect in a round, scaled up from the agent's own
	// MinUpdateSize so that num_threads workers together clear it.
	MinWorkerSteps int
}

// Manager drives Config.NumPeriods rounds of parallel rollout collection
// followed by one Agent.BatchUpdate call each, against one Environment
// shared read-only across every round's workers.
type Manager[S, O, A, F any] struct {
	Config Config
	Logger stats.Logger
}

// New builds a Manager. logger may be nil, in which case stats.Nop is
// used (mirrors env.Environment.Step's own nil-logger convention).
func New[S, O, A, F any](cfg Config, logger stats.Logger) *Manager[S, O, A, F] {
	if logger == nil {
		logger = stats.Nop{}
	}
	return &Manager[S, O, A, F]{Config: cfg, Logger: logger}
}

// workerResult is what one worker goroutine reports back to the round
// loop after its buffer reports full.
type workerResult[O, A, F any] struct {
	buffer  buffer.History[O, A, F]
	steps   int
	episode int
}

// Run executes Config.NumPeriods rounds of agent/environment
// interaction against environment, per round:
//
//  1. the manager sizes one fresh buffer per worker from the agent's
//     MinUpdateSize, scaled so every worker collects at least
//     Config.MinWorkerSteps steps;
//  2. the manager takes a stable evaluation-mode actor snapshot (the
//     Actor value itself — Agent.Actor's own contract requires this be
//     safe for concurrent readers);
//  3. each worker rolls out episodes against its own per-thread PRNG
//     (split from a master source) and the shared environment, pushing
//     steps into its own buffer until it holds the scaled bound's hard
//     threshold of steps, or its soft threshold at an episode boundary;
//  4. the manager waits for every worker to join;
//  5. the manager calls agent.BatchUpdate once over every worker's
//     drained buffer;
//  6. the manager logs aggregate step/episode counts and advances the
//     progress bar.
//
// A worker goroutine panic is not recovered: per the concurrency
// model's cancellation rule, a round runs to completion or the whole
// training run aborts.
func (m *Manager[S, O, A, F]) Run(
	a agent.Agent[S, O, A, F],
	environment env.Environment[S, O, A, F],
	masterSource rand.Source,
) error {
	bound := a.MinUpdateSize()
	workerBound := scaleBound(bound, m.Config.NumThreads, m.Config.MinWorkerSteps)

	barWidth := intutils.Min(progressBarWidth, intutils.Max(1, m.Config.NumPeriods))
	bar := progressbar.New(barWidth, m.Config.NumPeriods, time.Second, true)
	bar.Display()
	defer bar.Close()

	masterRng := rand.New(masterSource)

	for period := 0; period < m.Config.NumPeriods; period++ {
		actor := a.Actor(agent.Eval)

		results := make([]workerResult[O, A, F], m.Config.NumThreads)
		var wait sync.WaitGroup
		wait.Add(m.Config.NumThreads)

		for w := 0; w < m.Config.NumThreads; w++ {
			workerSeed := masterRng.Uint64()
			history := a.Buffer()
			go func(w int, seed uint64, history buffer.History[O, A, F]) {
				defer wait.Done()
				rng := rand.New(rand.NewSource(seed))
				steps, episodes := rollout(actor, environment, history, workerBound, rng, m.Logger)
				results[w] = workerResult[O, A, F]{buffer: history, steps: steps, episode: episodes}
			}(w, workerSeed, history)
		}
		wait.Wait()

		buffers := make([]buffer.History[O, A, F], m.Config.NumThreads)
		totalSteps, totalEpisodes := 0, 0
		for w, r := range results {
			buffers[w] = r.buffer
			totalSteps += r.steps
			totalEpisodes += r.episode
		}

		if err := a.BatchUpdate(buffers, m.Logger); err != nil {
			return fmt.Errorf("trainer: round %d: batch update failed: %w", period, err)
		}

		m.Logger.Log(stats.MustId("trainer/steps"), stats.Count(uint64(totalSteps)))
		m.Logger.Log(stats.MustId("trainer/episodes"), stats.Count(uint64(totalEpisodes)))
		bar.Increment()
		bar.AddMessage(fmt.Sprintf("period %d: %d steps, %d episodes", period, totalSteps, totalEpisodes))
	}
	return nil
}

// scaleBound widens bound so that numWorkers buffers, each aiming for
// minWorkerSteps, together clear the agent's own MinUpdateSize: workers
// cannot be scaled down below what the agent asked for, only up to
// whatever floor the caller configured per worker.
func scaleBound(bound buffer.DataBound, numWorkers, minWorkerSteps int) buffer.DataBound {
	return buffer.DataBound{
		MinSteps:   intutils.Max(bound.MinSteps, minWorkerSteps),
		SlackSteps: bound.SlackSteps,
	}
}

// rollout runs episodes of actor against environment, pushing every
// step into history, until the steps pushed reach bound's hard
// threshold (stop immediately, even mid-episode) or its soft threshold
// at an episode's end. It returns the number of steps pushed and
// episodes completed.
func rollout[S, O, A, F any](
	actor agent.Actor[O, A],
	environment env.Environment[S, O, A, F],
	history buffer.History[O, A, F],
	bound buffer.DataBound,
	rng *rand.Rand,
	logger stats.Logger,
) (steps, episodes int) {
	for {
		state := environment.InitialState(rng)
		obs := environment.Observe(state, rng)
		episodeState := actor.InitialState(rng)

		for {
			action, nextEpisodeState := actor.Act(episodeState, obs, rng)
			episodeState = nextEpisodeState

			successor, feedback := environment.Step(state, action, rng, logger)

			partial := timestep.PartialStep[O, A, F]{
				Observation: obs,
				Action:      action,
				Feedback:    feedback,
				NextKind:    successor.Kind(),
			}
			if successor.Kind() == timestep.Interrupt {
				partial.InterruptState = environment.Observe(successor.MustState(), rng)
			}

			history.Push(partial)
			steps++
			done := successor.Done()
			if done {
				episodes++
			}

			if steps >= bound.HardThreshold() {
				return steps, episodes
			}
			if steps >= bound.SoftThreshold() && done {
				return steps, episodes
			}
			if done {
				break
			}

			state = successor.MustState()
			obs = environment.Observe(state, rng)
		}
	}
}
