package pipeline

import (
	"fmt"
	"time"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// RunEdgePipeline starts the collector and drains its samples into the
// WAL + queue, honoring the backpressure policies.
func RunEdgePipeline(col ports.Collector, wal ports.WAL, q ports.SampleQueue, pol ports.Policy, obs ports.Observability) error {
	ch := make(chan *domain.Sample, pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return err
	}

	go func() {
		for s := range ch {
			Submit(s, wal, q, pol, obs)
		}
	}()

	return nil
}

// Submit appends one sample to the WAL and enqueues it. It is the shared
// intake path for collectors and the HTTP receiver; false means the sample
// was rejected or dropped by policy.
func Submit(s *domain.Sample, wal ports.WAL, q ports.SampleQueue, pol ports.Policy, obs ports.Observability) bool {
	if !waitForWALCapacity(wal, pol, obs) {
		return false
	}

	id, err := wal.Append(s)
	if err != nil {
		obs.LogCritical("wal_append_failed", err)
		return false
	}

	if !enqueueWithPolicy(q, id, s, pol, obs) {
		obs.IncCounter("netobs_queue_dropped_total", 1)
		obs.RecordDrop("intake", "queue_full")
		return false
	}
	return true
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.SampleQueue, id ports.WALEntryID, s *domain.Sample, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, s); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
