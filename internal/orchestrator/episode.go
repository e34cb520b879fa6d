package orchestrator

import (
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/memory"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Rewards configures the shaping of the experience values.
type Rewards struct {
	// MaterialWeight multiplies the reserve growth of the side minus the reserve growth of the
	// opponent, between consecutive decision points of the side within the same season.
	MaterialWeight float32

	// StepCredit is added to every non-terminal experience.
	StepCredit float32

	// TerminalScale multiplies the final score change of the terminal experiences.
	TerminalScale float32
}

// DefaultRewards returns the reference shaping.
func DefaultRewards() Rewards {
	return Rewards{MaterialWeight: 0.001, TerminalScale: 1}
}

// Shaped returns the value of the transition of side from its decision point prev to its next
// decision point next: the change of the side score, plus the material term if both are in the
// same season, plus the step credit.
func (r Rewards) Shaped(side state.Side, prev, next state.Phase) float32 {
	p, n := prev.Common(), next.Common()
	value := float32(n.Scores[side] - p.Scores[side])
	if p.Season == n.Season {
		other := side.Other()
		growth := (n.Material(side) - p.Material(side)) - (n.Material(other) - p.Material(other))
		value += r.MaterialWeight * float32(growth)
	}
	return value + r.StepCredit
}

// Terminal returns the value of the last transition of side, from its decision point prev to the
// end of the game: the change of the side score, where the victor holds all the points.
func (r Rewards) Terminal(side state.Side, prev state.Phase, ending *state.Ending) float32 {
	return r.TerminalScale * float32(ending.Scores[side]-prev.Common().Scores[side])
}

// halfTransition is a decision taken by a side, waiting for the side's next decision point (or
// the end of the game) to become an Experience.
type halfTransition struct {
	phase  state.Phase
	action int
}

// episode is one game being played by the agent against itself.
type episode struct {
	id       int
	phase    state.Phase
	pending  [state.NumSides]*halfTransition
	steps    int
	finished bool

	// terminalReward of the side that made the last move, set when the episode finishes.
	terminalReward float32
}

func newEpisode(id int, start state.Phase) *episode {
	return &episode{id: id, phase: start}
}

// advance closes the pending half-transition of the side to play, applies the selected action
// and opens a new half-transition. If the game ends, the pending half-transitions of both sides
// become terminal experiences. It returns the number of experiences stored.
//
// If the engine rejects the selected candidate the episode is dropped: it is marked finished with
// no pending half-transitions.
func (e *episode) advance(a *agent.Agent, engine state.Engine, rewards Rewards, selection agent.Selection) (int, error) {
	side := e.phase.Common().WhoseTurn
	var numExperiences int
	if prev := e.pending[side]; prev != nil {
		a.Remember(&memory.Experience{
			State:     prev.phase,
			Action:    prev.action,
			Next:      e.phase,
			NextLegal: selection.Legal,
			Value:     rewards.Shaped(side, prev.phase, e.phase),
		})
		numExperiences++
	}

	outcome, err := engine.Apply(e.phase, selection.Candidate)
	if err != nil {
		// The candidate was decoded from a legal index: this is a codec/engine mismatch. The
		// episode is dropped, so its pending decisions are never remembered twice.
		e.pending = [state.NumSides]*halfTransition{}
		e.finished = true
		return numExperiences, errors.WithMessagef(err, "episode #%d, step %d", e.id, e.steps)
	}
	e.pending[side] = &halfTransition{phase: e.phase, action: selection.Action}
	e.steps++
	if outcome.Ending == nil {
		e.phase = outcome.Next
		return numExperiences, nil
	}

	// Both sides learn the outcome of their last decision.
	for _, s := range []state.Side{side, side.Other()} {
		prev := e.pending[s]
		if prev == nil {
			continue
		}
		value := rewards.Terminal(s, prev.phase, outcome.Ending)
		a.Remember(&memory.Experience{State: prev.phase, Action: prev.action, Value: value, Terminal: true})
		numExperiences++
		if s == side {
			e.terminalReward = value
		}
		e.pending[s] = nil
	}
	e.finished = true
	klog.V(2).Infof("Episode #%d finished after %d steps: %s", e.id, e.steps, outcome.Ending)
	return numExperiences, nil
}
