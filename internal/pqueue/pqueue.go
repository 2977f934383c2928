// Package pqueue provides a generic, indexed binary-heap priority queue.
//
// The queue is parameterized over a strict weak order supplied by the caller.
// Items returned by Push are handles: their value may be mutated in place and
// the heap repaired with Fix, or the item removed with Remove, in O(log n).
package pqueue

import "container/heap"

// Item is a handle to a value stored in a Queue.
type Item[T any] struct {
	Value T
	index int
}

// Queue is a min-queue with respect to less: Pop returns the element for
// which no other element is less.
type Queue[T any] struct {
	h inner[T]
}

// New creates an empty queue ordered by less.
func New[T any](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{h: inner[T]{less: less}}
}

// From builds a queue from values in O(n).
func From[T any](less func(a, b T) bool, values ...T) *Queue[T] {
	q := New(less)
	q.h.items = make([]*Item[T], len(values))
	for i, v := range values {
		q.h.items[i] = &Item[T]{Value: v, index: i}
	}
	heap.Init(&q.h)
	return q
}

// Len reports the number of queued values.
func (q *Queue[T]) Len() int { return len(q.h.items) }

// Push adds v and returns its handle.
func (q *Queue[T]) Push(v T) *Item[T] {
	it := &Item[T]{Value: v}
	heap.Push(&q.h, it)
	return it
}

// Pop removes and returns the least value. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if len(q.h.items) == 0 {
		return v, false
	}
	it := heap.Pop(&q.h).(*Item[T])
	return it.Value, true
}

// Peek returns the least value without removing it.
func (q *Queue[T]) Peek() (v T, ok bool) {
	if len(q.h.items) == 0 {
		return v, false
	}
	return q.h.items[0].Value, true
}

// Fix restores heap order after it.Value was changed.
func (q *Queue[T]) Fix(it *Item[T]) {
	if it.index < 0 || it.index >= len(q.h.items) || q.h.items[it.index] != it {
		return
	}
	heap.Fix(&q.h, it.index)
}

// Remove deletes it from the queue and returns its value.
func (q *Queue[T]) Remove(it *Item[T]) (v T, ok bool) {
	if it.index < 0 || it.index >= len(q.h.items) || q.h.items[it.index] != it {
		return v, false
	}
	removed := heap.Remove(&q.h, it.index).(*Item[T])
	return removed.Value, true
}

// Values returns the queued values in heap (not sorted) order.
func (q *Queue[T]) Values() []T {
	out := make([]T, len(q.h.items))
	for i, it := range q.h.items {
		out[i] = it.Value
	}
	return out
}

// inner adapts the item slice to container/heap.
type inner[T any] struct {
	items []*Item[T]
	less  func(a, b T) bool
}

func (h inner[T]) Len() int           { return len(h.items) }
func (h inner[T]) Less(i, j int) bool { return h.less(h.items[i].Value, h.items[j].Value) }

func (h inner[T]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *inner[T]) Push(x any) {
	it := x.(*Item[T])
	it.index = len(h.items)
	h.items = append(h.items, it)
}

func (h *inner[T]) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	h.items = old[:n-1]
	return it
}
