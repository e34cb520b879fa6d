// cerkebot loads a trained estimator and plays matches with it, against itself or against a
// random player, printing the results.
//
// Example:
//
//	$ cerkebot -bot="dqn=runs/first/dqn" -opponent=random -num_matches=100
package main

import (
	"context"
	"flag"
	"fmt"
	_ "github.com/cerkeai/cerkeGo/internal/ai/gomlx"
	_ "github.com/cerkeai/cerkeGo/internal/ai/mlp"
	"github.com/cerkeai/cerkeGo/internal/players"
	"github.com/cerkeai/cerkeGo/internal/profilers"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/cerkeai/cerkeGo/internal/ui/cli"
	"github.com/cerkeai/cerkeGo/internal/ui/spinning"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"math/rand/v2"
	"time"
)

var (
	flagBot = flag.String("bot", "", "Estimator configuration of the bot, e.g. \"dqn=runs/first/dqn\" "+
		"or \"mlp=weights.json\".")
	flagOpponent = flag.String("opponent", "random", "Opponent: \"random\", \"self\", or the estimator "+
		"configuration of another bot.")
	flagNumMatches = flag.Int("num_matches", 1, "Number of matches to play. The bot alternates sides.")
	flagMaxSteps   = flag.Int("max_steps", 1000, "Max decisions per match, after which it is counted as unfinished.")
	flagSeed       = flag.Uint64("seed", 0, "Seed of the random number generator. If 0 a random seed is used.")
	flagPrint      = flag.Bool("print", false, "Print every step of the matches.")
	flagColor      = flag.Bool("color", true, "Use colors when printing.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagBot == "" {
		klog.Fatal("Please set the bot estimator with -bot")
	}

	ctx, cancel := spinning.SafeInterrupt(context.Background(), 5*time.Second)
	defer cancel()
	prof := must.M1(profilers.Setup(ctx))
	defer prof.OnQuit()

	seed := *flagSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	rules := state.NewRules(state.DefaultConfig(), rng)
	bot := must.M1(players.NewBot(*flagBot, rules))
	opponent := must.M1(newOpponent(*flagOpponent, bot, rules, rng))
	must.M(playMatches(ctx, rules, bot, opponent))
}

func newOpponent(config string, bot *players.Bot, rules *state.Rules, rng *rand.Rand) (players.Player, error) {
	switch config {
	case "random":
		return players.NewRandom(rules, rng), nil
	case "self":
		return bot, nil
	case "":
		return nil, errors.New("-opponent must be set")
	}
	return players.NewBot(config, rules)
}

// results of the matches, from the point of view of the bot.
type results struct {
	wins, losses, draws, unfinished int
	points                          int
}

func (r results) String() string {
	return fmt.Sprintf("%d wins, %d losses, %d draws, %d unfinished, %+d points",
		r.wins, r.losses, r.draws, r.unfinished, r.points)
}

func playMatches(ctx context.Context, rules *state.Rules, bot, opponent players.Player) error {
	var ui *cli.UI
	var observer players.Observer
	if *flagPrint {
		ui = cli.New(*flagColor, false)
		observer = func(phase state.Phase, c state.Candidate) {
			ui.Print(phase)
			ui.PrintCandidate(phase.Common().WhoseTurn, c)
		}
	}
	initialScore := rules.Config().InitialScore
	var r results
	for matchIdx := range *flagNumMatches {
		botSide := state.Side(matchIdx % state.NumSides)
		var matchPlayers [state.NumSides]players.Player
		matchPlayers[botSide] = bot
		matchPlayers[botSide.Other()] = opponent
		ending, err := players.Match(ctx, rules, rules.NewGame(), matchPlayers, *flagMaxSteps, observer)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.WithMessagef(err, "match #%d", matchIdx)
		}
		switch {
		case ending == nil:
			r.unfinished++
		case ending.Draw():
			r.draws++
		case *ending.Victor == botSide:
			r.wins++
		default:
			r.losses++
		}
		if ending != nil {
			r.points += ending.Scores[botSide] - initialScore
			if ui != nil {
				ui.PrintEnding(ending)
			}
		}
		klog.V(1).Infof("Match #%d, bot playing %s: %v", matchIdx, botSide, ending)
	}
	fmt.Printf("%s vs %s: %s\n", bot, opponent, r)
	return nil
}
