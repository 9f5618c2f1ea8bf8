package sink

import (
	"errors"
	"fmt"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// Fanout writes every batch to all configured sinks. Any sink error keeps the
// batch uncommitted in the WAL, so a partially failed fan-out is replayed;
// the idempotent sinks absorb the duplicates.
type Fanout struct {
	sinks []ports.Sink
}

func NewFanout(sinks ...ports.Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) WriteBatch(samples []*domain.Sample) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.WriteBatch(samples); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.Sink = (*Fanout)(nil)
