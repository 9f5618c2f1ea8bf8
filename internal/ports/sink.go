package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

// Sink persists batches of normalized samples to a downstream system.
type Sink interface {
	WriteBatch(samples []*domain.Sample) error
	Name() string
}
