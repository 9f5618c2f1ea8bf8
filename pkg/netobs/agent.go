package netobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/network-observability/network-observability-lab/internal/adapters/collector"
	"github.com/network-observability/network-observability-lab/internal/adapters/httpingest"
	"github.com/network-observability/network-observability-lab/internal/adapters/observability"
	"github.com/network-observability/network-observability-lab/internal/adapters/queue"
	"github.com/network-observability/network-observability-lab/internal/adapters/sink"
	"github.com/network-observability/network-observability-lab/internal/adapters/wal"
	"github.com/network-observability/network-observability-lab/internal/app/pipeline"
	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// AgentRuntimeOption customizes the dependencies used by AgentRuntime.
type AgentRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collectors    []Collector
	egress        Sink
	stageList     []Stage
	wal           WAL
	queue         SampleQueue
	observability Observability
	logger        *zap.SugaredLogger
}

// WithCollector adds a custom collector alongside (or instead of) the
// configured ones.
func WithCollector(col Collector) AgentRuntimeOption {
	return func(o *runtimeOverrides) {
		if col != nil {
			o.collectors = append(o.collectors, col)
		}
	}
}

// WithSink replaces the configured sinks entirely.
func WithSink(s Sink) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.egress = s }
}

// WithStages replaces the configured stage list with an already-built one.
func WithStages(stageList []Stage) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.stageList = stageList }
}

// WithWAL lets callers bring their own WAL implementation.
func WithWAL(w WAL) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.wal = w }
}

// WithSampleQueue injects a custom queue implementation.
func WithSampleQueue(q SampleQueue) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.queue = q }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithLogger overrides the logger built from the logging config block.
func WithLogger(logger *zap.SugaredLogger) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.logger = logger }
}

// AgentRuntime wires the collectors → WAL → queue → stages → sink pipeline
// and exposes lifecycle hooks for embedding the agent inside any Go service.
type AgentRuntime struct {
	cfg        *Config
	policy     Policy
	logger     *zap.SugaredLogger
	obs        Observability
	wal        WAL
	queue      SampleQueue
	collectors []Collector
	router     *pipeline.Router
	egress     Sink

	db          *sql.DB
	natsSink    *sink.NATSSink
	writerSinks []*sink.WriterSink
	ingest      *httpingest.Server
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewAgentRuntime bootstraps the default adapters (configured collectors,
// file WAL, in-memory queue, configured sinks, Prometheus observability).
// AgentRuntimeOption values override any dependency.
func NewAgentRuntime(cfg *Config, opts ...AgentRuntimeOption) (*AgentRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		var err error
		logger, err = cfg.Logging.BuildLogger()
		if err != nil {
			return nil, err
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(logger)
	}

	rt := &AgentRuntime{
		cfg:    cfg,
		policy: cfg.Policy,
		logger: logger,
		obs:    obs,
	}

	if overrides.wal != nil {
		rt.wal = overrides.wal
	} else {
		fileWAL, err := wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return nil, err
		}
		rt.wal = fileWAL
	}

	rt.queue = overrides.queue
	if rt.queue == nil {
		rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	stageList := overrides.stageList
	if stageList == nil {
		var err error
		stageList, err = cfg.BuildStages()
		if err != nil {
			return nil, err
		}
	}
	rt.router = pipeline.NewRouter(stageList, obs)

	rt.collectors = overrides.collectors
	if len(rt.collectors) == 0 {
		cols, err := buildCollectors(cfg, obs)
		if err != nil {
			return nil, err
		}
		rt.collectors = cols
	}

	if overrides.egress != nil {
		rt.egress = overrides.egress
	} else if err := rt.buildSinks(); err != nil {
		return nil, err
	}

	if cfg.Ingest.Enabled {
		submit := func(s *domain.Sample) bool {
			return pipeline.Submit(s, rt.wal, rt.queue, rt.policy, rt.obs)
		}
		rt.ingest = httpingest.NewServer(cfg.Ingest.Config, submit, logger, obs)
	}

	return rt, nil
}

func buildCollectors(cfg *Config, obs Observability) ([]Collector, error) {
	var cols []Collector
	if cfg.Collectors.Exec != nil {
		c, err := collector.NewExecCollector(*cfg.Collectors.Exec, obs)
		if err != nil {
			return nil, fmt.Errorf("collectors.exec: %w", err)
		}
		cols = append(cols, c)
	}
	if cfg.Collectors.TCP != nil {
		c, err := collector.NewTCPCollector(*cfg.Collectors.TCP, obs)
		if err != nil {
			return nil, fmt.Errorf("collectors.tcp: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func (rt *AgentRuntime) buildSinks() error {
	var sinks []ports.Sink

	if wcfg := rt.cfg.Sinks.Writer; wcfg != nil {
		ws, err := sink.NewFileWriterSink(wcfg.Path)
		if err != nil {
			return err
		}
		rt.writerSinks = append(rt.writerSinks, ws)
		sinks = append(sinks, ws)
	}

	if pcfg := rt.cfg.Sinks.Postgres; pcfg != nil {
		db, err := sql.Open("postgres", pcfg.ConnString)
		if err != nil {
			return fmt.Errorf("sinks.postgres: %w", err)
		}
		rt.db = db
		sinks = append(sinks, sink.NewPostgresSink(db, pcfg.Table))
	}

	if ncfg := rt.cfg.Sinks.NATS; ncfg != nil {
		ns, err := sink.NewNATSSink(*ncfg)
		if err != nil {
			return fmt.Errorf("sinks.nats: %w", err)
		}
		rt.natsSink = ns
		sinks = append(sinks, ns)
	}

	switch len(sinks) {
	case 0:
		return fmt.Errorf("no sink configured")
	case 1:
		rt.egress = sinks[0]
	default:
		rt.egress = sink.NewFanout(sinks...)
	}
	return nil
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// the agent down in reverse order. The ingest loop starts before WAL replay
// so a backlog larger than the queue drains instead of wedging startup under
// a "block" policy.
func (rt *AgentRuntime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.startMetrics()

	ingestDone := make(chan struct{})
	go func() {
		defer close(ingestDone)
		pipeline.RunIngestPipeline(ctx, rt.wal, rt.queue, rt.router, rt.egress, rt.policy, rt.obs)
	}()

	var runErr error
	if err := replayWALIntoQueue(ctx, rt.wal, rt.queue, rt.policy, rt.obs); err != nil && !errors.Is(err, context.Canceled) {
		runErr = fmt.Errorf("wal replay: %w", err)
	}

	for _, col := range rt.collectors {
		if runErr != nil {
			break
		}
		if err := pipeline.RunEdgePipeline(col, rt.wal, rt.queue, rt.policy, rt.obs); err != nil {
			runErr = err
		}
	}

	if runErr == nil && rt.ingest != nil {
		runErr = rt.ingest.Start()
	}

	if runErr == nil {
		rt.obs.LogInfo("agent_started",
			Field{Key: "collectors", Value: len(rt.collectors)},
			Field{Key: "sink", Value: rt.egress.Name()})
	} else {
		cancel()
	}

	<-ingestDone
	rt.shutdown()
	return runErr
}

func (rt *AgentRuntime) shutdown() {
	for _, col := range rt.collectors {
		if err := col.Stop(); err != nil {
			rt.obs.LogError("collector_stop_failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.ingest != nil {
		if err := rt.ingest.Shutdown(shutdownCtx); err != nil {
			rt.obs.LogError("ingest_shutdown_failed", err)
		}
	}
	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(shutdownCtx); err != nil {
			rt.obs.LogError("metrics_shutdown_failed", err)
		}
	}
	if rt.gaugeStopCh != nil {
		close(rt.gaugeStopCh)
	}

	for _, ws := range rt.writerSinks {
		if err := ws.Close(); err != nil {
			rt.obs.LogError("writer_sink_close_failed", err)
		}
	}
	if rt.natsSink != nil {
		rt.natsSink.Close()
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.obs.LogError("db_close_failed", err)
		}
	}

	_ = rt.logger.Sync()
}

func (rt *AgentRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{
		Addr:    rt.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.obs.LogError("metrics_server_exited", err)
		}
	}()

	rt.gaugeStopCh = make(chan struct{})
	go rt.recordResourceGauges(rt.gaugeStopCh, time.Second, walCompactEveryTicks)
}

// walCompactEveryTicks is how many gauge ticks pass between WAL compactions.
const walCompactEveryTicks = 60

func (rt *AgentRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration, compactEvery int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var ticks int
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stats := rt.wal.Stats()
			rt.obs.SetGauge("netobs_wal_size_bytes", float64(stats.SizeBytes))
			rt.obs.SetGauge("netobs_queue_length", float64(rt.queue.Len()))

			ticks++
			if compactEvery > 0 && ticks%compactEvery == 0 && stats.OldestUncommitted > 1 {
				if err := rt.wal.TruncateCommitted(); err != nil {
					rt.obs.LogError("wal_compact_failed", err)
				}
			}
		}
	}
}

// errReplayChunkFull stops WAL iteration once a chunk is full so samples are
// enqueued outside the WAL lock, letting a concurrent ingest loop commit
// while replay waits for queue space.
var errReplayChunkFull = errors.New("replay chunk full")

func replayWALIntoQueue(ctx context.Context, walAdapter WAL, q SampleQueue, pol Policy, obs Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	next := stats.OldestUncommitted
	if next == 0 || next > stats.LatestAppended {
		return nil
	}

	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}
	chunkSize := pol.MaxBatchSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	var replayed int
	for {
		chunk := make([]QueuedSample, 0, chunkSize)
		iterErr := walAdapter.Iterate(next, func(id WALEntryID, sample *domain.Sample) error {
			chunk = append(chunk, QueuedSample{ID: id, Sample: sample})
			if len(chunk) >= chunkSize {
				return errReplayChunkFull
			}
			return nil
		})
		if iterErr != nil && !errors.Is(iterErr, errReplayChunkFull) {
			return iterErr
		}
		if len(chunk) == 0 {
			break
		}

		for _, item := range chunk {
			for !q.Enqueue(item.ID, item.Sample) {
				switch pol.OnQueueFull {
				case "drop", "reject":
					return fmt.Errorf("queue full during WAL replay")
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(sleep):
				}
			}
			replayed++
		}

		next = chunk[len(chunk)-1].ID + 1
		if iterErr == nil {
			break
		}
	}

	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			Field{Key: "samples", Value: replayed},
			Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return nil
}
