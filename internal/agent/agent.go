// Package agent implements the Q-learning agent: it selects actions with the target estimator and
// an exploration policy, stores experiences in its replay memory, and learns with
// temporal-difference updates of the live estimator.
package agent

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/memory"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/cerkeai/cerkeGo/internal/policy"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"math/rand/v2"
)

// ErrEmptyMemory is returned by Learn when there is no experience to learn from.
var ErrEmptyMemory = errors.New("replay memory is empty")

// Config of the Agent.
type Config struct {
	// Gamma is the discount of the value of the next decision point.
	Gamma float32

	// Samples drawn from the replay memory per learning step.
	Samples int

	// RefreshEvery is the number of learning steps between hard target updates.
	RefreshEvery int

	Capacity int
	Eviction memory.Eviction

	// Policy used for the Start phases (moves), and DecisionPolicy for the other phases.
	Policy, DecisionPolicy string

	// GreedyProbability for the "epsilon" policy and Beta for the "boltzmann" policy.
	GreedyProbability, Beta float32
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Gamma:             0.998,
		Samples:           500,
		RefreshEvery:      10,
		Capacity:          memory.DefaultCapacity,
		Eviction:          memory.Reservoir,
		Policy:            "epsilon",
		DecisionPolicy:    "epsilon",
		GreedyProbability: policy.DefaultGreedyProbability,
		Beta:              policy.DefaultBeta,
	}
}

// ConfigFromParams pops the agent keys from params, starting from DefaultConfig:
// gamma, samples, refresh, capacity, eviction, policy, decision_policy, epsilon and beta.
func ConfigFromParams(params parameters.Params) (config Config, err error) {
	config = DefaultConfig()
	if config.Gamma, err = parameters.PopParamOr(params, "gamma", config.Gamma); err != nil {
		return
	}
	if config.Samples, err = parameters.PopParamOr(params, "samples", config.Samples); err != nil {
		return
	}
	if config.RefreshEvery, err = parameters.PopParamOr(params, "refresh", config.RefreshEvery); err != nil {
		return
	}
	if config.Capacity, err = parameters.PopParamOr(params, "capacity", config.Capacity); err != nil {
		return
	}
	var eviction string
	if eviction, err = parameters.PopParamOr(params, "eviction", config.Eviction.String()); err != nil {
		return
	}
	if config.Eviction, err = memory.ParseEviction(eviction); err != nil {
		return
	}
	if config.Policy, err = parameters.PopParamOr(params, "policy", config.Policy); err != nil {
		return
	}
	if config.DecisionPolicy, err = parameters.PopParamOr(params, "decision_policy", config.DecisionPolicy); err != nil {
		return
	}
	if config.GreedyProbability, err = parameters.PopParamOr(params, "epsilon", config.GreedyProbability); err != nil {
		return
	}
	config.Beta, err = parameters.PopParamOr(params, "beta", config.Beta)
	return
}

// Agent owns the estimator pair and the replay memory. It is not safe for concurrent use.
type Agent struct {
	config    Config
	estimator ai.Estimator
	engine    state.Engine
	memory    *memory.ReplayMemory

	movePolicy, decisionPolicy policy.Policy

	// iteration counts the successful learning steps.
	iteration int
}

// New creates an Agent with an empty replay memory. rng drives the policies, and seeds a separate
// generator owned by the memory.
func New(config Config, estimator ai.Estimator, engine state.Engine, rng *rand.Rand) (*Agent, error) {
	if config.Samples <= 0 || config.RefreshEvery <= 0 || config.Capacity <= 0 {
		return nil, errors.Errorf("invalid agent configuration: samples=%d, refresh=%d, capacity=%d",
			config.Samples, config.RefreshEvery, config.Capacity)
	}
	a := &Agent{
		config:    config,
		estimator: estimator,
		engine:    engine,
		memory:    memory.New(config.Capacity, config.Eviction, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))),
	}
	var err error
	if a.movePolicy, err = policy.New(config.Policy, config.GreedyProbability, config.Beta, rng); err != nil {
		return nil, err
	}
	if a.decisionPolicy, err = policy.New(config.DecisionPolicy, config.GreedyProbability, config.Beta, rng); err != nil {
		return nil, err
	}
	klog.V(1).Infof("Created %s", a)
	return a, nil
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent{%s, move policy %s, decision policy %s, gamma=%g, samples=%d, memory %d/%s}",
		a.estimator, a.movePolicy, a.decisionPolicy, a.config.Gamma, a.config.Samples,
		a.config.Capacity, a.config.Eviction)
}

// Config returns the agent configuration.
func (a *Agent) Config() Config { return a.config }

// Estimator returns the estimator pair used by the agent.
func (a *Agent) Estimator() ai.Estimator { return a.estimator }

// Memory returns the agent replay memory.
func (a *Agent) Memory() *memory.ReplayMemory { return a.memory }

// Iteration returns the number of successful learning steps.
func (a *Agent) Iteration() int { return a.iteration }

// Remember stores the experience in the replay memory.
func (a *Agent) Remember(e *memory.Experience) {
	a.memory.Put(e)
}
