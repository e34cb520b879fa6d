// Package generics implements generic data structure functions missing from the stdlib.
package generics

import (
	"cmp"
	"golang.org/x/exp/constraints"
	"iter"
	"maps"
	"slices"
)

// SliceMap executes the given function sequentially for every element on in, and returns a mapped slice.
func SliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SortedKeys returns an iterator over the sorted keys of the given map.
//
// It extracts the keys, sort them and then iterate over, so it's convenient but not fast.
func SortedKeys[M interface{ ~map[K]V }, K cmp.Ordered, V any](m M) iter.Seq[K] {
	return slices.Values(slices.Sorted(maps.Keys(m)))
}

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// MakeSet returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func MakeSet[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// SetWith creates a Set[T] with the given elements inserted.
func SetWith[T comparable](elements ...T) Set[T] {
	s := MakeSet[T](len(elements))
	s.Insert(elements...)
	return s
}

// Has returns true if Set s has the given key.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// MovingAverage is an exponential moving average that, for the first values, behaves like a
// plain mean: the decay is capped at 1-1/count, so early values are not dominated by the zero
// initial average.
type MovingAverage[T constraints.Float] struct {
	Decay   T
	Average T
	Count   int
}

// NewMovingAverage returns an empty MovingAverage with the given decay.
func NewMovingAverage[T constraints.Float](decay T) *MovingAverage[T] {
	return &MovingAverage[T]{Decay: decay}
}

// Add a new value and return the updated average.
func (m *MovingAverage[T]) Add(value T) T {
	m.Count++
	decay := min(1-1/T(m.Count), m.Decay)
	m.Average = m.Average*decay + (1-decay)*value
	return m.Average
}
