package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

// Stage is one ordered, filtered transformation in the normalization
// pipeline. The router runs stages in ascending Order (declaration order on
// ties), skipping any stage whose Match rejects the sample.
//
// Apply returns the transformed sample, or (nil, nil) to drop the sample and
// terminate its walk. A non-nil error routes the sample to the DLQ without
// stopping the pipeline.
type Stage interface {
	Name() string
	Order() int
	Match(s *domain.Sample) bool
	Apply(s *domain.Sample) (*domain.Sample, error)
}
