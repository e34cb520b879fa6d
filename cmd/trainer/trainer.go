package main

import (
	"context"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/agent"
	"github.com/cerkeai/cerkeGo/internal/ai"
	"github.com/cerkeai/cerkeGo/internal/generics"
	"github.com/cerkeai/cerkeGo/internal/orchestrator"
	"github.com/cerkeai/cerkeGo/internal/parameters"
	"github.com/cerkeai/cerkeGo/internal/players"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/cerkeai/cerkeGo/internal/ui/cli"
	"github.com/cerkeai/cerkeGo/internal/ui/spinning"
	"github.com/pkg/errors"
	"golang.org/x/term"
	"k8s.io/klog/v2"
	"os"
	"path/filepath"
	"time"
)

const averageLossDecay = float32(0.95)

type trainer struct {
	run       *runInfo
	rules     *state.Rules
	estimator ai.Estimator
	agent     *agent.Agent
	driver    orchestrator.Driver

	averageLoss *generics.MovingAverage[float32]
	isTerminal  bool
}

// newTrainer builds the estimator, agent and driver from the flags.
func newTrainer(run *runInfo) (*trainer, error) {
	t := &trainer{
		run:         run,
		averageLoss: generics.NewMovingAverage(averageLossDecay),
		isTerminal:  term.IsTerminal(int(os.Stdout.Fd())),
	}
	rng := run.rng()
	t.rules = state.NewRules(state.DefaultConfig(), rng)

	estimatorConfig := *flagEstimator
	if estimatorConfig == "" {
		estimatorConfig = "dqn=" + filepath.Join(run.Dir, "dqn")
	}
	var err error
	t.estimator, err = ai.New(estimatorConfig)
	if err != nil {
		return nil, err
	}

	agentParams := parameters.NewFromConfigString(*flagAgent)
	agentConfig, err := agent.ConfigFromParams(agentParams)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing -agent=%q", *flagAgent)
	}
	if err = agentParams.CheckAllUsed("-agent"); err != nil {
		return nil, err
	}
	t.agent, err = agent.New(agentConfig, t.estimator, t.rules, rng)
	if err != nil {
		return nil, err
	}

	driverParams := parameters.NewFromConfigString(*flagDriver)
	driverConfig, err := orchestrator.ConfigFromParams(driverParams)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing -driver=%q", *flagDriver)
	}
	if err = driverParams.CheckAllUsed("-driver"); err != nil {
		return nil, err
	}
	t.driver, err = orchestrator.New(driverConfig, t.agent, t.rules)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Agent: %s", t.agent)
	klog.V(1).Infof("Driver: %s", t.driver)
	return t, nil
}

// trainLoop runs numIterations iterations (or until interrupted if numIterations <= 0), saving
// every -save_every iterations and at the end.
func (t *trainer) trainLoop(ctx context.Context, numIterations int) error {
	start := time.Now()
	var numFailed int
	iteration := 0
	for ; numIterations <= 0 || iteration < numIterations; iteration++ {
		if ctx.Err() != nil {
			fmt.Println()
			klog.Infof("Interrupted after %d iterations", iteration)
			break
		}
		stats, err := t.driver.Iteration()
		if err != nil {
			// The learning step (or an episode) was abandoned: move on to the next iteration.
			numFailed++
			klog.Errorf("Iteration %d failed: %+v", iteration, err)
		} else {
			average := t.averageLoss.Add(stats.Loss)
			t.printProgress(stats, average, time.Since(start))
		}
		if shouldSave(iteration, *flagSaveEvery) {
			if err := t.save(ctx, iteration); err != nil {
				return err
			}
		}
	}
	fmt.Println()
	if numFailed > 0 {
		klog.Warningf("%d out of %d iterations failed", numFailed, iteration)
	}
	return t.save(ctx, iteration)
}

// shouldSave reports whether the estimator is saved after the given iteration (counting from 0),
// whether it succeeded or not.
func shouldSave(iteration, saveEvery int) bool {
	return saveEvery > 0 && (iteration+1)%saveEvery == 0
}

func (t *trainer) printProgress(stats orchestrator.Stats, averageLoss float32, elapsed time.Duration) {
	line := fmt.Sprintf("%s, ~loss=%.4g, memory=%d, elapsed=%s",
		stats, averageLoss, t.agent.Memory().Len(), elapsed.Round(time.Second))
	if t.isTerminal {
		fmt.Printf("\r%s\x1b[0K", line)
		return
	}
	fmt.Println(line)
}

// save the estimator and, if configured, the replay memory and a demonstration game.
func (t *trainer) save(ctx context.Context, iteration int) error {
	if t.isTerminal {
		fmt.Println()
	}
	spinner := spinning.New(ctx, os.Stdout, fmt.Sprintf("Saving %s", t.estimator))
	err := t.estimator.Save()
	if err == nil && *flagExportExperiences {
		path := filepath.Join(t.run.Dir, fmt.Sprintf("experiences-%06d.parquet", iteration))
		err = t.agent.Memory().ExportParquet(path, t.run.ID)
	}
	spinner.Done()
	if err != nil {
		return errors.WithMessagef(err, "saving at iteration %d", iteration)
	}
	if *flagPrintSteps > 0 {
		return t.demo(ctx)
	}
	return nil
}

// demo plays and prints a game of the greedy bot against itself.
func (t *trainer) demo(ctx context.Context) error {
	bot, err := players.NewBotWithEstimator(t.estimator, t.rules)
	if err != nil {
		return err
	}
	ui := cli.New(t.isTerminal, false)
	ending, err := players.Match(ctx, t.rules, t.rules.NewGame(), [state.NumSides]players.Player{bot, bot},
		*flagPrintSteps, func(phase state.Phase, c state.Candidate) {
			ui.Print(phase)
			ui.PrintCandidate(phase.Common().WhoseTurn, c)
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.WithMessagef(err, "demonstration game")
	}
	if ending != nil {
		ui.PrintEnding(ending)
	}
	return nil
}
