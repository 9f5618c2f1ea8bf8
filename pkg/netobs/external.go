package netobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/network-observability/network-observability-lab/internal/adapters/observability"
	"github.com/network-observability/network-observability-lab/internal/adapters/queue"
	"github.com/network-observability/network-observability-lab/internal/adapters/wal"
	"github.com/network-observability/network-observability-lab/internal/app/pipeline"
	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// ErrQueueFull indicates the in-memory queue rejected the sample according to policy.
var ErrQueueFull = errors.New("netobs: queue full")

// ErrWALFull indicates the WAL is at capacity and OnWALFull != "block".
var ErrWALFull = errors.New("netobs: wal full")

// Sample mirrors the internal domain.Sample but is safe for external callers.
type Sample struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Timestamp   int64
}

func (s Sample) toDomain() *domain.Sample {
	d := domain.New(s.Measurement)
	d.Timestamp = s.Timestamp
	for k, v := range s.Tags {
		d.Tags[k] = v
	}
	for k, v := range s.Fields {
		d.Fields[k] = domain.NormalizeFieldValue(v)
	}
	return d
}

func sampleFromDomain(d *domain.Sample) Sample {
	out := Sample{
		Measurement: d.Measurement,
		Timestamp:   d.Timestamp,
		Tags:        make(map[string]string, len(d.Tags)),
		Fields:      make(map[string]interface{}, len(d.Fields)),
	}
	for k, v := range d.Tags {
		out.Tags[k] = v
	}
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	return out
}

// SampleBatchSink is invoked with ordered batches dequeued from the pipeline.
type SampleBatchSink func([]Sample) error

// ExternalPublisherConfig configures the WAL-backed publisher used by callers
// embedding the pipeline without a config file.
type ExternalPublisherConfig struct {
	Policy Policy
	WAL    WALConfig
	Stages []StageConfig
}

func (c *ExternalPublisherConfig) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.Workers == 0 {
		c.Policy.Workers = 1
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/netobs-wal"
	}
}

func (c *ExternalPublisherConfig) validate() error {
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	if c.Policy.MaxQueueLen <= 0 {
		return fmt.Errorf("policy.max_queue_len must be > 0")
	}
	if c.Policy.MaxBatchSize <= 0 {
		return fmt.Errorf("policy.max_batch_size must be > 0")
	}
	return nil
}

// ExternalPublisher exposes the WAL→queue→stages→sink pipeline to external
// producers that already hold samples in memory.
type ExternalPublisher struct {
	policy Policy
	wal    ports.WAL
	queue  ports.SampleQueue
	obs    ports.Observability
	router *pipeline.Router
	sink   SampleBatchSink

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewExternalPublisher wires a WAL + bounded queue + sink callback so callers
// can push arbitrary samples while reusing durability, backpressure, and the
// normalization stages.
func NewExternalPublisher(cfg *ExternalPublisherConfig, sink SampleBatchSink) (*ExternalPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink callback is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stageList, err := BuildStages(cfg.Stages)
	if err != nil {
		return nil, err
	}

	walAdapter, err := wal.NewFileWAL(cfg.WAL.Dir)
	if err != nil {
		return nil, err
	}
	q := queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	obs := observability.NewPromObs(nil)

	pub := &ExternalPublisher{
		policy: cfg.Policy,
		wal:    walAdapter,
		queue:  q,
		obs:    obs,
		router: pipeline.NewRouter(stageList, obs),
		sink:   sink,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	// The drain loop starts before replay so a WAL backlog larger than the
	// queue flows through instead of blocking the constructor.
	go pub.runIngest()

	if err := replayWALIntoQueue(context.Background(), walAdapter, q, cfg.Policy, obs); err != nil {
		pub.stopOnce.Do(func() { close(pub.stopCh) })
		return nil, err
	}
	return pub, nil
}

// Publish appends the sample to the WAL and enqueues it according to policy.
func (p *ExternalPublisher) Publish(sample Sample) error {
	dom := sample.toDomain()

	if !pipeline.Submit(dom, p.wal, p.queue, p.policy, p.obs) {
		if p.wal.Stats().SizeBytes >= p.policy.MaxWALSizeBytes {
			return ErrWALFull
		}
		return ErrQueueFull
	}
	return nil
}

// Close waits for the ingest loop to exit, respecting the provided context.
func (p *ExternalPublisher) Close(ctx context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	select {
	case <-p.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ExternalPublisher) runIngest() {
	defer close(p.doneCh)
	idle := p.policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		batch := p.queue.DequeueBatch(p.policy.MaxBatchSize)
		if len(batch) == 0 {
			time.Sleep(idle)
			continue
		}

		var (
			converted = make([]Sample, 0, len(batch))
			maxID     ports.WALEntryID
		)

		for _, item := range batch {
			s, err := p.router.Route(item.Sample)
			if err != nil {
				p.obs.RecordDLQ(item.ID, item.Sample, err)
				continue
			}
			if s != nil {
				converted = append(converted, sampleFromDomain(s))
			}
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if len(converted) == 0 {
			_ = p.wal.Commit(maxID)
			continue
		}

		if err := p.sink(converted); err != nil {
			p.obs.LogError("external_sink_failed", err)
			time.Sleep(idle)
			continue
		}

		p.obs.IncCounter("netobs_samples_ingested_total", float64(len(converted)))
		if err := p.wal.Commit(maxID); err != nil {
			p.obs.LogError("wal_commit_failed", err)
		}
	}
}
