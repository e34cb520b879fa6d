// Package players provides game players: the Bot, serving the greedy decisions of a trained
// estimator, and a Random baseline. Match plays one game between two players.
package players

import (
	"context"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"math/rand/v2"
	"sync"
)

// Player is anything that is able to play the game.
type Player interface {
	// Action returns the candidate chosen for the phase, one of the candidates listed by the engine.
	Action(phase state.Phase) (state.Candidate, error)

	String() string
}

// Bot plays the greedy action of an estimator. It is safe for concurrent use.
//
// Each Bot owns its estimator: several bots with different weights can live in the same
// program.
type Bot struct {
	mu    sync.Mutex
	agent *agent.Agent
}

var _ Player = (*Bot)(nil)

// NewBot loads the estimator described by config (see ai.New, e.g. "dqn=/path/to/checkpoint")
// and creates a Bot for the rules of engine.
func NewBot(config string, engine state.Engine) (*Bot, error) {
	estimator, err := ai.New(config)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading bot estimator %q", config)
	}
	return NewBotWithEstimator(estimator, engine)
}

// NewBotWithEstimator creates a Bot for an already loaded estimator.
func NewBotWithEstimator(estimator ai.Estimator, engine state.Engine) (*Bot, error) {
	config := agent.DefaultConfig()
	config.Policy = "greedy"
	config.DecisionPolicy = "greedy"
	config.Capacity = 1
	// Greedy policies never draw from the random source.
	a, err := agent.New(config, estimator, engine, rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Created bot with %s", estimator)
	return &Bot{agent: a}, nil
}

// Action implements Player.
func (b *Bot) Action(phase state.Phase) (state.Candidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	selection, err := b.agent.SelectAction(phase)
	if err != nil {
		return nil, err
	}
	return selection.Candidate, nil
}

func (b *Bot) String() string {
	return fmt.Sprintf("bot(%s)", b.agent.Estimator())
}

// Random plays uniformly among the candidates of each phase.
type Random struct {
	mu     sync.Mutex
	engine state.Engine
	rng    *rand.Rand
}

var _ Player = (*Random)(nil)

// NewRandom creates a Random player.
func NewRandom(engine state.Engine, rng *rand.Rand) *Random {
	return &Random{engine: engine, rng: rng}
}

// Action implements Player.
func (r *Random) Action(phase state.Phase) (state.Candidate, error) {
	candidates, err := r.engine.Candidates(phase)
	if err != nil {
		return nil, err
	}
	all := candidates.All()
	if len(all) == 0 {
		return nil, errors.Errorf("phase %s has no candidates", phase.Kind())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return all[r.rng.IntN(len(all))], nil
}

func (r *Random) String() string { return "random" }

// Observer is called after every decision of a Match, with the phase where it was taken.
type Observer func(phase state.Phase, c state.Candidate)

// Match plays a game from start until it ends, the context is cancelled or maxSteps decisions
// were taken. players is indexed by state.Side. It returns nil as the ending of an unfinished
// game.
func Match(ctx context.Context, engine state.Engine, start state.Phase, players [state.NumSides]Player,
	maxSteps int, observer Observer) (*state.Ending, error) {
	phase := start
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		side := phase.Common().WhoseTurn
		c, err := players[side].Action(phase)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s playing %s at step %d", players[side], side, step)
		}
		if observer != nil {
			observer(phase, c)
		}
		outcome, err := engine.Apply(phase, c)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s playing %s at step %d", players[side], side, step)
		}
		if outcome.Ending != nil {
			return outcome.Ending, nil
		}
		phase = outcome.Next
	}
	klog.V(1).Infof("Match interrupted after %d steps", maxSteps)
	return nil, nil
}
