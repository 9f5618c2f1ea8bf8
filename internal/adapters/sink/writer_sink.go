// Package sink holds the egress adapters: a line-protocol writer, a Postgres
// batch inserter, a NATS publisher, and a fan-out combining them.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// WriterSink serializes normalized samples back to line protocol, one per
// line. It backs both the stdout sink and file sinks.
type WriterSink struct {
	name   string
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewWriterSink(name string, w io.Writer) *WriterSink {
	return &WriterSink{name: name, w: w}
}

// NewFileWriterSink opens path for appending; "-" or "" means stdout.
func NewFileWriterSink(path string) (*WriterSink, error) {
	if path == "" || path == "-" {
		return NewWriterSink("stdout", os.Stdout), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("writer sink open %s: %w", path, err)
	}
	s := NewWriterSink("file:"+path, f)
	s.closer = f
	return s, nil
}

func (s *WriterSink) Name() string { return s.name }

func (s *WriterSink) WriteBatch(samples []*domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		if _, err := fmt.Fprintln(s.w, lineproto.Serialize(sample)); err != nil {
			return fmt.Errorf("writer sink %s: %w", s.name, err)
		}
	}
	return nil
}

func (s *WriterSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ ports.Sink = (*WriterSink)(nil)
