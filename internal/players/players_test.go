package players

import (
	"context"
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/ai/aitest"
	_ "github.com/cerkeai/cerkeGo/internal/ai/mlp"
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"
)

func TestBotIsGreedy(t *testing.T) {
	rules := state.NewRules(state.DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	fake := aitest.NewFake()
	bot, err := NewBotWithEstimator(fake, rules)
	require.NoError(t, err)
	assert.Equal(t, "bot(fake)", bot.String())

	phase := rules.NewGame()
	candidates, err := rules.Candidates(phase)
	require.NoError(t, err)
	// The best legal action under the fake scores, the lowest index on ties.
	best, bestScore := -1, float32(-1)
	for _, idx := range codec.LegalActions(codec.LegalMask(phase, candidates)) {
		if fake.Scores[idx] > bestScore {
			best, bestScore = idx, fake.Scores[idx]
		}
	}
	for range 5 {
		c, err := bot.Action(phase)
		require.NoError(t, err)
		assert.Equal(t, best, codec.EncodeAction(c))
	}
	// Nothing is remembered or learned while serving.
	assert.Empty(t, fake.TrainBatches)
}

func TestNewBot(t *testing.T) {
	rules := state.NewRules(state.DefaultConfig(), rand.New(rand.NewPCG(1, 0)))
	_, err := NewBot("unknown=1", rules)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "weights.json")
	bot, err := NewBot(fmt.Sprintf("mlp=%s,hidden=8,layers=1", path), rules)
	require.NoError(t, err)
	phase := rules.NewGame()
	c, err := bot.Action(phase)
	require.NoError(t, err)
	candidates, err := rules.Candidates(phase)
	require.NoError(t, err)
	assert.True(t, slices.Contains(candidates.All(), c))
}

func TestMatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	rules := state.NewRules(state.DefaultConfig(), rng)
	bot, err := NewBotWithEstimator(aitest.NewFake(), rules)
	require.NoError(t, err)
	players := [state.NumSides]Player{bot, NewRandom(rules, rng)}

	var numDecisions int
	observer := func(phase state.Phase, c state.Candidate) {
		numDecisions++
		candidates, err := rules.Candidates(phase)
		require.NoError(t, err)
		require.True(t, slices.Contains(candidates.All(), c), "%s not a candidate of %s", c, phase.Kind())
	}
	ending, err := Match(context.Background(), rules, rules.NewGame(), players, 300, observer)
	require.NoError(t, err)
	if ending == nil {
		assert.Equal(t, 300, numDecisions)
	} else {
		assert.LessOrEqual(t, numDecisions, 300)
		assert.Equal(t, 2*rules.Config().InitialScore, ending.Scores[state.ASide]+ending.Scores[state.IASide])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Match(ctx, rules, rules.NewGame(), players, 300, nil)
	require.ErrorIs(t, err, context.Canceled)
}
