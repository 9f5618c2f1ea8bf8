package ports

import "github.com/network-observability/network-observability-lab/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)

	// RecordDrop counts a sample discarded inside the pipeline. A dropped
	// sample is otherwise silent data loss, so every drop site names its
	// stage and cause.
	RecordDrop(stage, cause string)

	RecordDLQ(id WALEntryID, s *domain.Sample, err error)
}

type Field struct {
	Key   string
	Value any
}
