package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityQueue_OrdersByPriority(t *testing.T) {
	pq := NewPriorityQueue[string]()
	pq.Enqueue("child", 1)
	pq.Enqueue("root", 0)

	v, ok := pq.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "root", v)

	v, ok = pq.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "child", v)

	_, ok = pq.Dequeue()
	assert.False(t, ok)
}

func TestPriorityQueue_TiesAreFIFO(t *testing.T) {
	pq := NewPriorityQueue[int]()
	for i := range 20 {
		pq.Enqueue(i, i%2)
	}

	got := pq.DequeueAll()
	want := []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}
	assert.Equal(t, want, got)
	assert.Equal(t, 0, pq.Len())
}

func TestPriorityQueue_ConcurrentEnqueue(t *testing.T) {
	pq := NewPriorityQueue[int]()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pq.Enqueue(i, i)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, pq.Len())
	assert.Len(t, pq.DequeueAll(), 50)
}
