package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

func TestRunIngestPipelineWritesAndCommits(t *testing.T) {
	wal := &mockWAL{}
	queue := &mockQueue{}
	obs := &mockObs{}
	sink := newCaptureSink(nil)

	for i := 1; i <= 3; i++ {
		s := domain.New("intf")
		s.Fields["seq"] = int64(i)
		queue.Enqueue(ports.WALEntryID(i), s)
	}

	pol := ports.Policy{MaxBatchSize: 10, Workers: 2, IdleSleep: time.Millisecond}
	router := NewRouter(nil, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunIngestPipeline(ctx, wal, queue, router, sink, pol, obs)
	}()

	select {
	case <-sink.wrote:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for sink write")
	}
	cancel()
	<-done

	batches := sink.all()
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %+v", batches)
	}
	// Dequeue order survives the worker fan-out.
	for i, s := range batches[0] {
		if s.Fields["seq"] != int64(i+1) {
			t.Fatalf("batch out of order at %d: %v", i, s.Fields["seq"])
		}
	}
	if wal.committedID() != 3 {
		t.Fatalf("expected commit up to 3, got %d", wal.committedID())
	}
	if obs.counterValue("netobs_samples_ingested_total") != 3 {
		t.Fatalf("expected ingested counter 3, got %f", obs.counterValue("netobs_samples_ingested_total"))
	}
}

func TestRunIngestPipelineKeepsWALOnSinkFailure(t *testing.T) {
	wal := &mockWAL{}
	queue := &mockQueue{}
	obs := &mockObs{}
	sink := newCaptureSink(errors.New("sink down"))

	queue.Enqueue(1, domain.New("intf"))

	pol := ports.Policy{MaxBatchSize: 10, Workers: 1, IdleSleep: time.Millisecond}
	router := NewRouter(nil, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunIngestPipeline(ctx, wal, queue, router, sink, pol, obs)
	}()

	select {
	case <-sink.wrote:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for sink attempt")
	}
	cancel()
	<-done

	if wal.committedID() != 0 {
		t.Fatalf("failed batch must stay uncommitted, got commit %d", wal.committedID())
	}
	if len(obs.errorMsgs()) == 0 {
		t.Fatalf("expected sink failure to be logged")
	}
}

func TestRunIngestPipelineSendsStageErrorsToDLQ(t *testing.T) {
	wal := &mockWAL{}
	queue := &mockQueue{}
	obs := &mockObs{}
	sink := newCaptureSink(nil)

	queue.Enqueue(1, domain.New("intf"))
	queue.Enqueue(2, domain.New("intf"))

	router := NewRouter([]ports.Stage{&failingStage{err: errors.New("boom")}}, obs)
	pol := ports.Policy{MaxBatchSize: 10, Workers: 2, IdleSleep: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunIngestPipeline(ctx, wal, queue, router, sink, pol, obs)
	}()

	deadline := time.After(time.Second)
	for wal.committedID() != 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for commit, got %d", wal.committedID())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if obs.dlqCount() != 2 {
		t.Fatalf("expected 2 DLQ records, got %d", obs.dlqCount())
	}
	if len(sink.all()) != 0 {
		t.Fatalf("expected nothing written to the sink")
	}
}

type captureSink struct {
	mu      sync.Mutex
	batches [][]*domain.Sample
	err     error
	wrote   chan struct{}
}

func newCaptureSink(err error) *captureSink {
	return &captureSink{err: err, wrote: make(chan struct{}, 1)}
}

func (s *captureSink) WriteBatch(samples []*domain.Sample) error {
	s.mu.Lock()
	if s.err == nil {
		s.batches = append(s.batches, samples)
	}
	s.mu.Unlock()
	select {
	case s.wrote <- struct{}{}:
	default:
	}
	return s.err
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) all() [][]*domain.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]*domain.Sample(nil), s.batches...)
}
