package pipeline

import (
	"fmt"
	"time"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// Router walks one sample through the frozen, ordered stage list. A stage
// whose filter rejects the sample is skipped; a stage returning no sample
// ends the walk with the sample dropped. Routing holds no state across
// samples, so concurrent Route calls are safe once the stage list is built.
type Router struct {
	stages []ports.Stage
	obs    ports.Observability
}

// NewRouter wraps an already-ordered stage list (see stages.Build).
func NewRouter(stageList []ports.Stage, obs ports.Observability) *Router {
	return &Router{stages: stageList, obs: obs}
}

// dropCauser lets a stage name why it discards samples; stages without it are
// counted under a generic cause.
type dropCauser interface {
	DropCause() string
}

// Route returns the normalized sample, or (nil, nil) when a stage dropped it.
// A stage error aborts the walk; the caller decides whether to DLQ.
func (r *Router) Route(s *domain.Sample) (*domain.Sample, error) {
	cur := s
	for _, st := range r.stages {
		if !st.Match(cur) {
			continue
		}

		start := time.Now()
		next, err := st.Apply(cur)
		r.obs.ObserveLatency("netobs_stage_latency_seconds", time.Since(start).Seconds())

		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		if next == nil {
			cause := "transform"
			if dc, ok := st.(dropCauser); ok {
				cause = dc.DropCause()
			}
			r.obs.RecordDrop(st.Name(), cause)
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}
