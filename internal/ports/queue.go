package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

type QueuedSample struct {
	ID     WALEntryID
	Sample *domain.Sample
}

// SampleQueue is the bounded in-memory buffer between intake and the
// normalization loop.
type SampleQueue interface {
	Enqueue(id WALEntryID, s *domain.Sample) bool
	DequeueBatch(max int) []QueuedSample
	Len() int
}
