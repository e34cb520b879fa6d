// trainer trains a Cerke DQN agent by self-play.
//
// Each iteration plays the episodes configured by -driver and then runs one learning step. The
// estimator is saved every -save_every iterations and at the end, under -runs_dir/-run.
//
// Example:
//
//	$ trainer -run=first -agent="gamma=0.998,samples=500" -driver="driver=batched,pool=100,ticks=40" -num_iterations=1000
package main

import (
	"context"
	"flag"
	"fmt"
	_ "github.com/cerkeai/cerkeGo/internal/ai/gomlx"
	_ "github.com/cerkeai/cerkeGo/internal/ai/mlp"
	"github.com/cerkeai/cerkeGo/internal/profilers"
	"github.com/cerkeai/cerkeGo/internal/ui/spinning"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
	"time"
)

var (
	flagAgent = flag.String("agent", "", "Agent configuration, a comma-separated list of key=value: "+
		"gamma, samples, refresh, capacity, eviction (reservoir|fifo), policy and decision_policy "+
		"(epsilon|boltzmann|greedy), epsilon (probability of the greedy choice) and beta.")
	flagEstimator = flag.String("estimator", "", "Estimator configuration, e.g. \"dqn=<dir>,learning_rate=1e-4\" "+
		"or \"mlp=<file>,hidden=64\". Use \"dqn,help\" to list the hyperparameters. "+
		"Defaults to a GoMLX Q-network saved in the run directory.")
	flagDriver = flag.String("driver", "", "Driver configuration: driver (single|batched), episodes, steps, "+
		"pool, ticks, material_weight, step_credit and terminal_scale.")
	flagNumIterations = flag.Int("num_iterations", 0, "Number of iterations of self-play and learning. "+
		"A value of <= 0 means to train indefinitely, until interrupted.")
	flagSaveEvery = flag.Int("save_every", 10, "Save the estimator every given number of iterations.")
	flagRunsDir   = flag.String("runs_dir", "runs", "Directory where the runs are stored.")
	flagRun       = flag.String("run", "", "Name of the run, a subdirectory of -runs_dir. "+
		"Defaults to the current UTC time.")
	flagExportExperiences = flag.Bool("export_experiences", false,
		"Export the replay memory to a parquet file in the run directory, every time the estimator is saved.")
	flagSeed       = flag.Uint64("seed", 0, "Seed of the random number generator. If 0 a random seed is used.")
	flagPrintSteps = flag.Int("print_steps", 0, "If > 0, every time the estimator is saved play and print "+
		"a greedy demonstration game of at most this number of steps.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	// Capture Control+C: the current iteration is finished and the estimator saved.
	ctx, cancel := spinning.SafeInterrupt(context.Background(), 30*time.Second)
	defer cancel()

	prof := must.M1(profilers.Setup(ctx))
	defer prof.OnQuit()

	run := must.M1(newRun(*flagRunsDir, *flagRun, *flagSeed))
	fmt.Printf("Run %q (%s), seed %d: %s\n", run.Name, run.ID, run.Seed, run.Dir)
	t := must.M1(newTrainer(run))
	must.M(t.trainLoop(ctx, *flagNumIterations))
}
