// Package orchestrator drives self-play episodes of the agent, turning its decisions into
// experiences and running one learning step per iteration.
//
// Two drivers are provided: Single plays its episodes one after the other, and Batched advances
// a pool of episodes together, selecting the actions of all of them with one estimator call per
// tick. Both share the same experience construction and reward shaping.
package orchestrator

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Driver runs training iterations.
type Driver interface {
	// Iteration plays the episodes for its fixed budget and then runs one learning step.
	// Stats are returned also when the learning step fails.
	Iteration() (Stats, error)

	String() string
}

// Stats of one iteration.
type Stats struct {
	Iteration int

	// Episodes played (fully or partially), and how many of them finished.
	Episodes, Finished int

	Steps, Experiences int

	// TerminalRewards of the last mover of each finished episode.
	TerminalRewards []float32

	// Loss of the learning step.
	Loss float32
}

// TerminalRewardSum returns the sum of the terminal rewards of the finished episodes.
func (s Stats) TerminalRewardSum() (sum float32) {
	for _, r := range s.TerminalRewards {
		sum += r
	}
	return
}

func (s Stats) String() string {
	return fmt.Sprintf("%d : %g (finished %d/%d episodes, %d steps, %d experiences, loss=%.4g)",
		s.Iteration, s.TerminalRewardSum(), s.Finished, s.Episodes, s.Steps, s.Experiences, s.Loss)
}

// Config of the drivers.
type Config struct {
	// Driver is "single" or "batched".
	Driver string

	// Episodes per iteration and Steps per episode for the Single driver.
	Episodes, Steps int

	// Pool of concurrent episodes and Ticks per iteration for the Batched driver.
	Pool, Ticks int

	Rewards Rewards
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Driver:   "single",
		Episodes: 20,
		Steps:    100,
		Pool:     100,
		Ticks:    40,
		Rewards:  DefaultRewards(),
	}
}

// ConfigFromParams pops the driver keys from params, starting from DefaultConfig:
// driver, episodes, steps, pool, ticks, material_weight, step_credit and terminal_scale.
func ConfigFromParams(params parameters.Params) (config Config, err error) {
	config = DefaultConfig()
	if config.Driver, err = parameters.PopParamOr(params, "driver", config.Driver); err != nil {
		return
	}
	if config.Episodes, err = parameters.PopParamOr(params, "episodes", config.Episodes); err != nil {
		return
	}
	if config.Steps, err = parameters.PopParamOr(params, "steps", config.Steps); err != nil {
		return
	}
	if config.Pool, err = parameters.PopParamOr(params, "pool", config.Pool); err != nil {
		return
	}
	if config.Ticks, err = parameters.PopParamOr(params, "ticks", config.Ticks); err != nil {
		return
	}
	r := &config.Rewards
	if r.MaterialWeight, err = parameters.PopParamOr(params, "material_weight", r.MaterialWeight); err != nil {
		return
	}
	if r.StepCredit, err = parameters.PopParamOr(params, "step_credit", r.StepCredit); err != nil {
		return
	}
	r.TerminalScale, err = parameters.PopParamOr(params, "terminal_scale", r.TerminalScale)
	return
}

// New creates the driver selected by config.Driver.
func New(config Config, a *agent.Agent, rules *state.Rules) (Driver, error) {
	switch config.Driver {
	case "single", "":
		if config.Episodes <= 0 || config.Steps <= 0 {
			return nil, errors.Errorf("invalid single driver budget: %d episodes x %d steps", config.Episodes, config.Steps)
		}
		return NewSingle(a, rules, config.Episodes, config.Steps, config.Rewards), nil
	case "batched":
		if config.Pool <= 0 || config.Ticks <= 0 {
			return nil, errors.Errorf("invalid batched driver budget: pool of %d x %d ticks", config.Pool, config.Ticks)
		}
		return NewBatched(a, rules, config.Pool, config.Ticks, config.Rewards), nil
	}
	return nil, errors.Errorf("unknown driver %q, valid values are \"single\" or \"batched\"", config.Driver)
}

// learn finishes an iteration with one learning step of the agent.
func learn(a *agent.Agent, stats *Stats) error {
	for _, r := range stats.TerminalRewards {
		if math32.IsNaN(r) || math32.IsInf(r, 0) {
			return errors.Errorf("iteration %d: non-finite terminal reward %g", stats.Iteration, r)
		}
	}
	loss, err := a.Learn()
	if err != nil {
		return errors.WithMessagef(err, "iteration %d", stats.Iteration)
	}
	stats.Loss = loss
	return nil
}
