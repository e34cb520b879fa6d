// Package memory implements the bounded experience replay buffer used by the agent.
//
// Once full, the buffer overwrites a uniformly random slot (reservoir-like replacement), so old
// experiences keep a chance of being sampled. FIFO eviction is available as an alternative.
package memory

import (
	"fmt"
	"github.com/cerkeai/cerkeGo/internal/state"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"math/rand/v2"
	"sync"
)

// Experience is one transition: from State the agent took Action and, at its next decision
// point, found Next. Value is the reward collected in between.
type Experience struct {
	State  state.Phase
	Action int

	// Next is nil for Terminal experiences.
	Next state.Phase

	// NextLegal holds the legal action indices of Next, over which the TD target maximizes.
	NextLegal []int

	Value    float32
	Terminal bool
}

func (e *Experience) String() string {
	return fmt.Sprintf("Experience{%s, action=%d, value=%g, terminal=%v}", e.State.Kind(), e.Action, e.Value, e.Terminal)
}

// Eviction policy once the memory is full.
type Eviction int

const (
	// Reservoir overwrites a uniformly random slot.
	Reservoir Eviction = iota

	// FIFO overwrites the oldest slot.
	FIFO
)

func (e Eviction) String() string {
	if e == FIFO {
		return "fifo"
	}
	return "reservoir"
}

// ParseEviction converts "reservoir" or "fifo" to an Eviction.
func ParseEviction(s string) (Eviction, error) {
	switch s {
	case "reservoir", "":
		return Reservoir, nil
	case "fifo":
		return FIFO, nil
	}
	return Reservoir, errors.Errorf("unknown eviction policy %q, valid values are \"reservoir\" or \"fifo\"", s)
}

// DefaultCapacity of the replay memory.
const DefaultCapacity = 50_000

// ReplayMemory is a bounded store of experiences. It is safe for concurrent use, provided its rng
// is not used by anything else.
type ReplayMemory struct {
	mu       sync.Mutex
	capacity int
	eviction Eviction
	rng      *rand.Rand
	buffer   []*Experience
	oldest   int
	numPut   int
}

// New creates an empty memory. rng drives eviction and sampling, and is owned by the memory from
// then on: it is only used under the memory lock.
func New(capacity int, eviction Eviction, rng *rand.Rand) *ReplayMemory {
	if capacity <= 0 {
		exceptions.Panicf("memory: invalid capacity %d", capacity)
	}
	return &ReplayMemory{
		capacity: capacity,
		eviction: eviction,
		rng:      rng,
		buffer:   make([]*Experience, 0, min(capacity, 4096)),
	}
}

// Put stores the experience, evicting one if the memory is full.
func (m *ReplayMemory) Put(e *Experience) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.numPut++
	if len(m.buffer) < m.capacity {
		m.buffer = append(m.buffer, e)
		return
	}
	switch m.eviction {
	case FIFO:
		m.buffer[m.oldest] = e
		m.oldest = (m.oldest + 1) % m.capacity
	default:
		m.buffer[m.rng.IntN(m.capacity)] = e
	}
}

// Sample returns a uniformly random experience, without removing it.
// It panics if the memory is empty. The returned experience must not be modified.
func (m *ReplayMemory) Sample() *Experience {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleLocked()
}

func (m *ReplayMemory) sampleLocked() *Experience {
	if len(m.buffer) == 0 {
		exceptions.Panicf("memory: Sample() called on an empty replay memory")
	}
	return m.buffer[m.rng.IntN(len(m.buffer))]
}

// SampleN returns n experiences sampled independently (with replacement).
func (m *ReplayMemory) SampleN(n int) []*Experience {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := make([]*Experience, n)
	for ii := range samples {
		samples[ii] = m.sampleLocked()
	}
	return samples
}

// Len returns the number of experiences stored.
func (m *ReplayMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Capacity returns the maximum number of experiences stored.
func (m *ReplayMemory) Capacity() int {
	return m.capacity
}

// NumPut returns the total number of experiences ever stored, including evicted ones.
func (m *ReplayMemory) NumPut() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numPut
}

// Experiences returns a copy of the list of stored experiences.
func (m *ReplayMemory) Experiences() []*Experience {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Experience(nil), m.buffer...)
}
