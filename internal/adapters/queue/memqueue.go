package queue

import (
	"sync"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// MemQueue is a bounded FIFO ring buffer decoupling intake from the
// normalization loop.
type MemQueue struct {
	mu    sync.Mutex
	buf   []ports.QueuedSample
	head  int
	count int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{buf: make([]ports.QueuedSample, capacity)}
}

func (q *MemQueue) Enqueue(id ports.WALEntryID, s *domain.Sample) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = ports.QueuedSample{ID: id, Sample: s}
	q.count++
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedSample {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	if max <= 0 || max > q.count {
		max = q.count
	}
	out := make([]ports.QueuedSample, max)
	for i := 0; i < max; i++ {
		idx := (q.head + i) % len(q.buf)
		out[i] = q.buf[idx]
		q.buf[idx] = ports.QueuedSample{}
	}
	q.head = (q.head + max) % len(q.buf)
	q.count -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

var _ ports.SampleQueue = (*MemQueue)(nil)
