package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

// Collector streams raw samples from a source (exec script, TCP feed) into
// the pipeline's intake channel.
type Collector interface {
	Start(out chan<- *domain.Sample) error
	Stop() error
}
