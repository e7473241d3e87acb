// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package livestate

// Ring is a fixed-capacity FIFO that overwrites its oldest element when
// full. The zero value has capacity zero and drops everything.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
}

// NewRing returns an empty ring holding at most capacity elements.
// A non-positive capacity yields a ring that drops every push.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends item, evicting the oldest element when the ring is
// full. Reports whether an element was evicted (or, for a zero
// capacity ring, whether item itself was dropped).
func (ring *Ring[T]) Push(item T) bool {
	capacity := len(ring.items)
	if capacity == 0 {
		return true
	}
	if ring.size < capacity {
		ring.items[(ring.head+ring.size)%capacity] = item
		ring.size++
		return false
	}
	ring.items[ring.head] = item
	ring.head = (ring.head + 1) % capacity
	return true
}

// Len returns the number of held elements.
func (ring *Ring[T]) Len() int { return ring.size }

// Cap returns the capacity.
func (ring *Ring[T]) Cap() int { return len(ring.items) }

// Last returns the newest element.
func (ring *Ring[T]) Last() (T, bool) {
	var zero T
	if ring.size == 0 {
		return zero, false
	}
	return ring.items[(ring.head+ring.size-1)%len(ring.items)], true
}

// Slice copies the held elements, oldest first.
func (ring *Ring[T]) Slice() []T {
	out := make([]T, ring.size)
	for i := range ring.size {
		out[i] = ring.items[(ring.head+i)%len(ring.items)]
	}
	return out
}

// Clear drops every element and releases the backing array.
func (ring *Ring[T]) Clear() {
	ring.items = nil
	ring.head = 0
	ring.size = 0
}
