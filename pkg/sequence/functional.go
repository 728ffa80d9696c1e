package sequence

import (
	"iter"
	"slices"
)

// Iterator is a chainable, lazy view over a sequence of T.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// From iterates data in order.
func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{seq: slices.Values(data)}
}

// FromSeq wraps an existing sequence.
func FromSeq[T any](seq iter.Seq[T]) *Iterator[T] {
	return &Iterator[T]{seq: seq}
}

// Seq returns the underlying sequence, for use with range.
func (i *Iterator[T]) Seq() iter.Seq[T] {
	return i.seq
}

// Collect exhausts the iterator and returns a slice of all elements.
func (i *Iterator[T]) Collect() []T {
	return slices.Collect(i.seq)
}

// Sort returns a new Iterator with elements sorted by cmp (eager).
func (i *Iterator[T]) Sort(cmp func(a, b T) int) *Iterator[T] {
	data := i.Collect()
	slices.SortStableFunc(data, cmp)
	return From(data)
}

// Filter returns a new Iterator containing only elements that satisfy the predicate.
func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for v := range i.seq {
				if pred(v) && !yield(v) {
					return
				}
			}
		},
	}
}

// Find returns the first element matching the predicate, or false if not found.
func (i *Iterator[T]) Find(pred func(T) bool) (T, bool) {
	for v := range i.seq {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// First returns the first element, or false if empty.
func (i *Iterator[T]) First() (T, bool) {
	return i.Find(func(T) bool { return true })
}

// Any returns true if any element matches the predicate.
func (i *Iterator[T]) Any(pred func(T) bool) bool {
	_, ok := i.Find(pred)
	return ok
}

// Take returns a new Iterator with the first n elements.
func (i *Iterator[T]) Take(n int) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			if n <= 0 {
				return
			}
			count := 0
			for v := range i.seq {
				if !yield(v) {
					return
				}
				count++
				if count == n {
					return
				}
			}
		},
	}
}

// Count returns the number of elements in the iterator.
func (i *Iterator[T]) Count() int {
	count := 0
	for range i.seq {
		count++
	}
	return count
}

// Map transforms elements from T to S lazily.
func Map[T, S any](it *Iterator[T], fn func(T) S) *Iterator[S] {
	return &Iterator[S]{
		seq: func(yield func(S) bool) {
			for v := range it.seq {
				if !yield(fn(v)) {
					return
				}
			}
		},
	}
}

// ToArray applies fn to each element and returns the results.
func ToArray[T, S any](it *Iterator[T], fn func(T) S) []S {
	return Map(it, fn).Collect()
}
