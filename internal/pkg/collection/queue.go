// Package collection provides generic containers for graph traversals.
package collection

import (
	"container/list"
)

// Queue is a FIFO queue. The zero value is empty and ready to use.
type Queue[T any] struct {
	data list.List
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Push(values ...T) {
	for _, v := range values {
		q.data.PushBack(v)
	}
}

// Pop removes the front element. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	e := q.data.Front()
	if e == nil {
		return v, false
	}

	q.data.Remove(e)
	return e.Value.(T), true
}

// Iter drains the queue front to back. Elements pushed while iterating are
// yielded too, so a breadth-first walk can push neighbours from the loop body.
func (q *Queue[T]) Iter(yield func(T) bool) {
	for {
		v, ok := q.Pop()
		if !ok || !yield(v) {
			return
		}
	}
}
