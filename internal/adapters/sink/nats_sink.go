package sink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// NATSConfig describes the publisher target.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

func (c *NATSConfig) ApplyDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "netobs"
	}
}

func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

// NATSSink publishes each normalized sample, serialized as line protocol, to
// `<prefix>.<measurement>` so consumers can subscribe per measurement.
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSSink(cfg NATSConfig) (*NATSSink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("netobs-agent"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats sink connect: %w", err)
	}
	return &NATSSink{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) WriteBatch(samples []*domain.Sample) error {
	for _, sample := range samples {
		subject := SubjectFor(s.prefix, sample.Measurement)
		if err := s.nc.Publish(subject, []byte(lineproto.Serialize(sample))); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
	}
	return s.nc.Flush()
}

func (s *NATSSink) Close() {
	s.nc.Close()
}

// SubjectFor builds the publish subject, replacing characters NATS treats as
// token separators or wildcards.
func SubjectFor(prefix, measurement string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	m := r.Replace(measurement)
	if m == "" {
		m = "unknown"
	}
	return prefix + "." + m
}

var _ ports.Sink = (*NATSSink)(nil)
