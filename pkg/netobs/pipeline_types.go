package netobs

import (
	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// PipelineSample is the data structure that flows through the WAL→queue→sink
// pipeline. It mirrors internal/domain.Sample but is exported so custom
// adapters can reference it.
type PipelineSample = domain.Sample

// QueuedSample represents an item buffered inside the bounded queue.
type QueuedSample = ports.QueuedSample

// Collector streams samples from any line-protocol source into the pipeline.
type Collector = ports.Collector

// Stage is one ordered, filtered transformation in the normalization chain.
type Stage = ports.Stage

// SampleQueue is the bounded, in-memory queue that decouples intake and sink.
type SampleQueue = ports.SampleQueue

// Sink consumes batches of normalized samples and persists them downstream.
type Sink = ports.Sink

// Observability emits metrics/logs about throughput, latency, and drops.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// Policy carries the backpressure and batching thresholds.
type Policy = ports.Policy
