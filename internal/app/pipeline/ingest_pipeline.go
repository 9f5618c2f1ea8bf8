package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// RunIngestPipeline dequeues batches, routes every sample through the stage
// list, and writes survivors to the sink. Samples are independent, so the
// router fans out across pol.Workers goroutines; the sink sees one batch per
// dequeue. WAL entries stay uncommitted while the sink fails, so a restart
// replays them.
func RunIngestPipeline(ctx context.Context, wal ports.WAL, q ports.SampleQueue, router *Router, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}
	workers := pol.Workers
	if workers < 1 {
		workers = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		var maxID ports.WALEntryID
		for _, item := range batch {
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		// Routed results keep their batch slot so sink order matches
		// dequeue order regardless of worker scheduling.
		routed := make([]*domain.Sample, len(batch))
		g := new(errgroup.Group)
		g.SetLimit(workers)
		for i, item := range batch {
			g.Go(func() error {
				s, err := router.Route(item.Sample)
				if err != nil {
					obs.RecordDLQ(item.ID, item.Sample, err)
					return nil
				}
				routed[i] = s
				return nil
			})
		}
		_ = g.Wait()

		out := make([]*domain.Sample, 0, len(routed))
		for _, s := range routed {
			if s != nil {
				out = append(out, s)
			}
		}

		if len(out) == 0 {
			_ = wal.Commit(maxID)
			continue
		}

		start := time.Now()
		if err := sink.WriteBatch(out); err != nil {
			obs.LogError("sink_write_failed", err)
			// keep WAL; replays later
			continue
		}
		obs.ObserveLatency("netobs_sink_latency_seconds", time.Since(start).Seconds())
		obs.IncCounter("netobs_samples_ingested_total", float64(len(out)))

		if err := wal.Commit(maxID); err != nil {
			obs.LogError("wal_commit_failed", err)
		}
	}
}
