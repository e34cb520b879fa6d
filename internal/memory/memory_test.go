package memory

import (
	"github.com/cerkeai/cerkeGo/internal/codec"
	"github.com/cerkeai/cerkeGo/internal/generics"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
)

func newExperience(action int) *Experience {
	return &Experience{
		State:  state.NewGame(state.DefaultConfig(), state.ASide),
		Action: action,
		Value:  float32(action),
	}
}

func TestSampleEmpty(t *testing.T) {
	m := New(10, Reservoir, rand.New(rand.NewPCG(42, 0)))
	assert.Equal(t, 0, m.Len())
	require.Panics(t, func() { m.Sample() })
}

func TestCapacity(t *testing.T) {
	for _, eviction := range []Eviction{Reservoir, FIFO} {
		t.Run(eviction.String(), func(t *testing.T) {
			const capacity = 100
			m := New(capacity, eviction, rand.New(rand.NewPCG(42, 0)))
			inserted := generics.MakeSet[*Experience]()
			for ii := range 1000 {
				e := newExperience(ii)
				inserted.Insert(e)
				m.Put(e)
				require.LessOrEqual(t, m.Len(), capacity)
				require.Equal(t, min(ii+1, capacity), m.Len())
			}
			assert.Equal(t, 1000, m.NumPut())
			assert.Equal(t, capacity, m.Capacity())

			// Sampled experiences were all inserted at some point.
			for _, e := range m.SampleN(500) {
				require.True(t, inserted.Has(e))
			}
			stored := m.Experiences()
			require.Len(t, stored, capacity)
			if eviction == FIFO {
				for _, e := range stored {
					require.GreaterOrEqual(t, e.Action, 900)
				}
			} else {
				// Random replacement keeps some old experiences with overwhelming probability.
				oldest := stored[0].Action
				for _, e := range stored {
					oldest = min(oldest, e.Action)
				}
				assert.Less(t, oldest, 900)
			}
		})
	}
}

func TestSampleUniform(t *testing.T) {
	m := New(4, Reservoir, rand.New(rand.NewPCG(42, 0)))
	for ii := range 4 {
		m.Put(newExperience(ii))
	}
	counts := make([]int, 4)
	for range 4000 {
		counts[m.Sample().Action]++
	}
	for _, c := range counts {
		assert.InDelta(t, 1000, c, 150)
	}
}

func TestConcurrentUse(t *testing.T) {
	m := New(100, Reservoir, rand.New(rand.NewPCG(42, 0)))
	m.Put(newExperience(0))
	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ii := range 200 {
				if worker%2 == 0 {
					m.Put(newExperience(ii))
				} else {
					_ = m.SampleN(4)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1+4*200, m.NumPut())
	assert.Equal(t, 100, m.Len())
}

func TestParseEviction(t *testing.T) {
	e, err := ParseEviction("fifo")
	require.NoError(t, err)
	assert.Equal(t, FIFO, e)
	e, err = ParseEviction("reservoir")
	require.NoError(t, err)
	assert.Equal(t, Reservoir, e)
	_, err = ParseEviction("lifo")
	require.Error(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	m := New(10, Reservoir, rand.New(rand.NewPCG(42, 0)))
	cfg := state.DefaultConfig()
	start := state.NewGame(cfg, state.IASide)
	next := state.NewGame(cfg, state.IASide)
	m.Put(&Experience{State: start, Action: 17, Next: next, NextLegal: []int{3, 5}, Value: 0.5})
	m.Put(&Experience{State: start, Action: codec.TaxotIndex, Value: -2, Terminal: true})

	path := filepath.Join(t.TempDir(), "experiences", "run.parquet")
	require.NoError(t, m.ExportParquet(path, "run-id"))
	rows, runID, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Equal(t, "run-id", runID)
	require.Len(t, rows, 2)

	assert.Equal(t, "Start", rows[0].Kind)
	assert.Equal(t, int32(17), rows[0].Action)
	assert.Len(t, rows[0].Features, state.NumCells+40)
	assert.Equal(t, int32(26), rows[0].Features[0])
	assert.Equal(t, []int32{3, 5}, rows[0].NextLegal)
	assert.Equal(t, rows[0].Features, rows[0].NextFeatures)
	assert.Equal(t, float32(0.5), rows[0].Value)
	assert.False(t, rows[0].Terminal)

	assert.True(t, rows[1].Terminal)
	assert.Equal(t, int32(codec.TaxotIndex), rows[1].Action)
	assert.Empty(t, rows[1].NextFeatures)
	assert.Equal(t, float32(-2), rows[1].Value)
}
