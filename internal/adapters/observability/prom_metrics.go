package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// PromObs implements the Observability port with Prometheus instruments and a
// zap sugared logger.
type PromObs struct {
	logger   *zap.SugaredLogger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	drops    *prometheus.CounterVec
}

func NewPromObs(logger *zap.SugaredLogger) *PromObs {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netobs_samples_ingested_total",
		Help: "Total normalized samples successfully written to the sink.",
	})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netobs_dlq_total",
		Help: "Samples sent to DLQ due to stage errors.",
	})
	queueDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netobs_queue_dropped_total",
		Help: "Samples lost to queue backpressure policies.",
	})
	parseErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netobs_parse_errors_total",
		Help: "Input lines that failed to parse as line protocol.",
	})
	httpRequests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netobs_http_requests_total",
		Help: "Requests handled by the HTTP ingest endpoint.",
	})
	walGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netobs_wal_size_bytes",
		Help: "Size of the WAL on disk.",
	})
	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netobs_queue_length",
		Help: "Samples currently buffered in the in-memory queue.",
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netobs_sink_latency_seconds",
		Help:    "Latency of one sink batch write.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	stageLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netobs_stage_latency_seconds",
		Help:    "Latency of one stage transform.",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
	})
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netobs_samples_dropped_total",
		Help: "Samples discarded inside the pipeline, by stage and cause.",
	}, []string{"stage", "cause"})

	prometheus.MustRegister(ingested, dlq, queueDrops, parseErrors, httpRequests,
		walGauge, queueGauge, sinkLatency, stageLatency, drops)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			"netobs_samples_ingested_total": ingested,
			"netobs_dlq_total":              dlq,
			"netobs_queue_dropped_total":    queueDrops,
			"netobs_parse_errors_total":     parseErrors,
			"netobs_http_requests_total":    httpRequests,
		},
		gauges: map[string]prometheus.Gauge{
			"netobs_wal_size_bytes": walGauge,
			"netobs_queue_length":   queueGauge,
		},
		histos: map[string]prometheus.Observer{
			"netobs_sink_latency_seconds":  sinkLatency,
			"netobs_stage_latency_seconds": stageLatency,
		},
		drops: drops,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Infow(msg, kvs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Errorw(msg, append(kvs(fields), "error", err)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Errorw(msg, append(kvs(fields), "error", err, "severity", "critical")...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(stage, cause string) {
	p.drops.WithLabelValues(stage, cause).Inc()
}

func (p *PromObs) RecordDLQ(id ports.WALEntryID, s *domain.Sample, err error) {
	p.IncCounter("netobs_dlq_total", 1)
	if err != nil {
		measurement := ""
		if s != nil {
			measurement = s.Measurement
		}
		p.logger.Errorw("sample_dlq", "wal_id", uint64(id), "measurement", measurement, "error", err)
	}
}

func kvs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
