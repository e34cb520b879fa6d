package policy

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math"
	"math/rand/v2"
	"testing"
)

func TestGreedy(t *testing.T) {
	mask := []bool{false, true, true, true, false}
	scores := []float32{10, 1, 3, 3, 20}
	assert.Equal(t, 2, Greedy{}.Choose(scores, mask))
	require.Panics(t, func() { Greedy{}.Choose(scores, make([]bool, 5)) })

	// NaN scores are skipped, wherever they are.
	nan := float32(math.NaN())
	assert.Equal(t, 3, Greedy{}.Choose([]float32{0, nan, 1, 2, 20}, mask))
	assert.Equal(t, 2, Greedy{}.Choose([]float32{0, 1, 3, nan, 20}, mask))
	assert.Equal(t, 1, Greedy{}.Choose([]float32{0, nan, nan, nan, 20}, mask))
	require.Panics(t, func() { Greedy{}.Choose(scores, mask[:2]) })
}

func TestEpsilonGreedy(t *testing.T) {
	p := NewEpsilonGreedy(DefaultGreedyProbability, rand.New(rand.NewPCG(42, 0)))
	mask := []bool{true, false, true, true}
	scores := []float32{0, 100, 5, 1}
	counts := make([]int, 4)
	const n = 10_000
	for range n {
		counts[p.Choose(scores, mask)]++
	}
	assert.Zero(t, counts[1])
	// 98% greedy plus a third of the 2% random picks.
	assert.InDelta(t, 0.98+0.02/3, float64(counts[2])/n, 0.01)
	assert.InDelta(t, 0.02/3, float64(counts[0])/n, 0.005)
	assert.InDelta(t, 0.02/3, float64(counts[3])/n, 0.005)

	// Fully random.
	p = NewEpsilonGreedy(0, rand.New(rand.NewPCG(42, 0)))
	counts = make([]int, 4)
	for range n {
		counts[p.Choose(scores, mask)]++
	}
	for _, idx := range []int{0, 2, 3} {
		assert.InDelta(t, 1.0/3, float64(counts[idx])/n, 0.02)
	}
	require.Panics(t, func() { p.Choose(scores, make([]bool, 4)) })
}

func TestBoltzmann(t *testing.T) {
	p := NewBoltzmann(DefaultBeta, rand.New(rand.NewPCG(42, 0)))
	mask := []bool{true, true, false}
	// exp(2*0.5)/(exp(0)+exp(2*0.5)) = e/(1+e) ~ 0.731
	scores := []float32{0, 0.5, 1000}
	counts := make([]int, 3)
	const n = 10_000
	for range n {
		counts[p.Choose(scores, mask)]++
	}
	assert.Zero(t, counts[2])
	assert.InDelta(t, 0.731, float64(counts[1])/n, 0.02)

	// Large scores don't overflow.
	assert.Equal(t, 1, p.Choose([]float32{0, 1e6, 0}, mask))
	require.Panics(t, func() { p.Choose(scores, make([]bool, 3)) })
}

func TestNew(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	for name, want := range map[string]string{
		"":          "epsilon(greedy=0.98)",
		"epsilon":   "epsilon(greedy=0.98)",
		"boltzmann": "boltzmann(beta=2)",
		"greedy":    "greedy",
	} {
		p, err := New(name, DefaultGreedyProbability, DefaultBeta, rng)
		require.NoError(t, err)
		assert.Equal(t, want, p.String())
	}
	_, err := New("softmax", DefaultGreedyProbability, DefaultBeta, rng)
	require.Error(t, err)
}
