package types

import (
	"iter"
	"maps"
	"slices"
)

// Set is a mutable hash set for comparable types, backed by a map[T]struct{}.
type Set[T comparable] map[T]struct{}

// NewSet builds a Set containing the given elements, if any.
func NewSet[T comparable](data ...T) Set[T] {
	set := make(Set[T])
	set.Add(data...)
	return set
}

// Add inserts the given elements into the set, in place.
func (s Set[T]) Add(values ...T) {
	for _, val := range values {
		s[val] = struct{}{}
	}
}

// Has reports whether the element is present in the set.
func (s Set[T]) Has(value T) bool {
	_, ok := s[value]
	return ok
}

// Delete removes the given elements from the set, in place.
func (s Set[T]) Delete(values ...T) {
	for _, val := range values {
		delete(s, val)
	}
}

// ToIter returns an iterator over the set's elements, in no particular order.
func (s Set[T]) ToIter() iter.Seq[T] {
	return maps.Keys(s)
}

// ToSlice collects the set's elements into a slice, in no particular order.
func (s Set[T]) ToSlice() []T {
	return slices.Collect(s.ToIter())
}
