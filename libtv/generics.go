// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package libtv // import "github.com/Falcon-OS/platform-external-perfetto/libtv"

// Set is a convenience alias for a map with a `Void` key.
type Set[T comparable] map[T]Void

// Add inserts an item into the set.
func (s Set[T]) Add(item T) {
	s[item] = Void{}
}

// Contains reports whether the item is a member of the set.
func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

// ToSlice converts the Set keys into a slice.
func (s Set[T]) ToSlice() []T {
	slice := make([]T, 0, len(s))
	for item := range s {
		slice = append(slice, item)
	}
	return slice
}

// SliceToSet creates a set from a slice, deduplicating it.
func SliceToSet[T comparable](s []T) Set[T] {
	set := make(Set[T], len(s))
	for _, item := range s {
		set[item] = Void{}
	}
	return set
}

// MapKeysToSlice creates a slice from a map's keys.
func MapKeysToSlice[K comparable, V any](m map[K]V) []K {
	slice := make([]K, 0, len(m))
	for key := range m {
		slice = append(slice, key)
	}
	return slice
}
