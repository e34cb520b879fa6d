package orchestrator

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/state"
)

// Single plays its episodes one after the other, one decision at a time.
type Single struct {
	agent    *agent.Agent
	rules    *state.Rules
	episodes int
	steps    int
	rewards  Rewards

	iteration, numEpisodes int
}

var _ Driver = (*Single)(nil)

// NewSingle creates a Single driver playing the given number of episodes per iteration, each
// truncated after steps decisions.
func NewSingle(a *agent.Agent, rules *state.Rules, episodes, steps int, rewards Rewards) *Single {
	return &Single{agent: a, rules: rules, episodes: episodes, steps: steps, rewards: rewards}
}

func (d *Single) String() string {
	return fmt.Sprintf("single(%d episodes x %d steps)", d.episodes, d.steps)
}

// Iteration implements Driver.
func (d *Single) Iteration() (stats Stats, err error) {
	stats.Iteration = d.iteration
	d.iteration++
	for range d.episodes {
		e := newEpisode(d.numEpisodes, d.rules.NewGame())
		d.numEpisodes++
		stats.Episodes++
		for !e.finished && e.steps < d.steps {
			selection, err := d.agent.SelectAction(e.phase)
			if err != nil {
				return stats, err
			}
			n, err := e.advance(d.agent, d.rules, d.rewards, selection)
			stats.Experiences += n
			if err != nil {
				return stats, err
			}
			stats.Steps++
		}
		if e.finished {
			stats.Finished++
			stats.TerminalRewards = append(stats.TerminalRewards, e.terminalReward)
		}
	}
	err = learn(d.agent, &stats)
	return stats, err
}
