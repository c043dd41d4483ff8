// Package queue provides a generic priority queue that keeps insertion order
// among values of equal priority.
package queue

import (
	"container/heap"
	"sync"
)

type entry[T any] struct {
	value    T
	priority int
	seq      uint64
}

// entries orders by priority, lower first, then by insertion sequence.
type entries[T any] []entry[T]

func (e entries[T]) Len() int { return len(e) }

func (e entries[T]) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority < e[j].priority
	}
	return e[i].seq < e[j].seq
}

func (e entries[T]) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries[T]) Push(x any) { *e = append(*e, x.(entry[T])) }

func (e *entries[T]) Pop() any {
	old := *e
	n := len(old)
	last := old[n-1]
	old[n-1] = entry[T]{}
	*e = old[:n-1]
	return last
}

// PriorityQueue is safe for concurrent use.
type PriorityQueue[T any] struct {
	mu   sync.Mutex
	heap entries[T]
	seq  uint64
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

func (pq *PriorityQueue[T]) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.heap)
}

// Enqueue adds value. Lower priorities are dequeued first; equal priorities in
// the order they were enqueued.
func (pq *PriorityQueue[T]) Enqueue(value T, priority int) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.seq++
	heap.Push(&pq.heap, entry[T]{value: value, priority: priority, seq: pq.seq})
}

func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	if len(pq.heap) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&pq.heap).(entry[T]).value, true
}

// DequeueAll drains the queue in priority order.
func (pq *PriorityQueue[T]) DequeueAll() []T {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	out := make([]T, 0, len(pq.heap))
	for len(pq.heap) > 0 {
		out = append(out, heap.Pop(&pq.heap).(entry[T]).value)
	}
	return out
}
