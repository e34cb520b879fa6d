package orchestrator

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/state"
	"k8s.io/klog/v2"
)

// Batched advances a pool of episodes together: at every tick the actions of all unfinished
// episodes are selected with one estimator call.
//
// Unfinished episodes carry over to the next iteration, and finished ones are replaced by new
// games at the start of the next iteration.
type Batched struct {
	agent   *agent.Agent
	rules   *state.Rules
	ticks   int
	rewards Rewards

	pool                   []*episode
	iteration, numEpisodes int
}

var _ Driver = (*Batched)(nil)

// NewBatched creates a Batched driver with poolSize concurrent episodes, advanced ticks times
// per iteration.
func NewBatched(a *agent.Agent, rules *state.Rules, poolSize, ticks int, rewards Rewards) *Batched {
	return &Batched{
		agent:   a,
		rules:   rules,
		ticks:   ticks,
		rewards: rewards,
		pool:    make([]*episode, poolSize),
	}
}

func (d *Batched) String() string {
	return fmt.Sprintf("batched(pool of %d x %d ticks)", len(d.pool), d.ticks)
}

// refill replaces finished (or not yet started) episodes by new games.
func (d *Batched) refill() {
	for ii, e := range d.pool {
		if e == nil || e.finished {
			d.pool[ii] = newEpisode(d.numEpisodes, d.rules.NewGame())
			d.numEpisodes++
		}
	}
}

// Iteration implements Driver.
func (d *Batched) Iteration() (stats Stats, err error) {
	stats.Iteration = d.iteration
	d.iteration++
	d.refill()
	stats.Episodes = len(d.pool)

	active := make([]*episode, 0, len(d.pool))
	phases := make([]state.Phase, 0, len(d.pool))
	for tick := range d.ticks {
		active, phases = active[:0], phases[:0]
		for _, e := range d.pool {
			if !e.finished {
				active = append(active, e)
				phases = append(phases, e.phase)
			}
		}
		if len(active) == 0 {
			klog.V(1).Infof("All %d episodes finished after %d ticks", len(d.pool), tick)
			break
		}
		selections, err := d.agent.BatchSelect(phases)
		if err != nil {
			return stats, err
		}
		for ii, e := range active {
			n, err := e.advance(d.agent, d.rules, d.rewards, selections[ii])
			stats.Experiences += n
			if err != nil {
				return stats, err
			}
			stats.Steps++
			if e.finished {
				stats.Finished++
				stats.TerminalRewards = append(stats.TerminalRewards, e.terminalReward)
			}
		}
	}
	err = learn(d.agent, &stats)
	return stats, err
}
