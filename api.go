package netobs

import (
	"io"

	base "github.com/network-observability/network-observability-lab/pkg/netobs"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrWALFull           = base.ErrWALFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config                  = base.Config
	Policy                  = base.Policy
	CollectorsConfig        = base.CollectorsConfig
	IngestConfig            = base.IngestConfig
	SinksConfig             = base.SinksConfig
	WriterSinkConfig        = base.WriterSinkConfig
	PostgresSinkConfig      = base.PostgresSinkConfig
	NATSSinkConfig          = base.NATSSinkConfig
	MetricsConfig           = base.MetricsConfig
	WALConfig               = base.WALConfig
	LoggingConfig           = base.LoggingConfig
	ExecConfig              = base.ExecConfig
	TCPConfig               = base.TCPConfig
	StageConfig             = base.StageConfig
	Flow                    = base.Flow
	FlowOption              = base.FlowOption
	StreamInOption          = base.StreamInOption
	StreamOutOption         = base.StreamOutOption
	AgentRuntime            = base.AgentRuntime
	AgentRuntimeOption      = base.AgentRuntimeOption
	Sample                  = base.Sample
	SampleBatchSink         = base.SampleBatchSink
	Collector               = base.Collector
	Stage                   = base.Stage
	Sink                    = base.Sink
	SampleQueue             = base.SampleQueue
	WAL                     = base.WAL
	Observability           = base.Observability
	QueuedSample            = base.QueuedSample
	WALEntryID              = base.WALEntryID
	WALStats                = base.WALStats
	OnceResult              = base.OnceResult
	ExternalPublisher       = base.ExternalPublisher
	ExternalPublisherConfig = base.ExternalPublisherConfig
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// BuildStages turns stage declarations into the frozen ordered stage list.
func BuildStages(cfgs []StageConfig) ([]Stage, error) {
	return base.BuildStages(cfgs)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q SampleQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutStages(stageList []Stage) StreamOutOption {
	return base.StreamOutStages(stageList)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Agent runtime and options.
func NewAgentRuntime(cfg *Config, opts ...AgentRuntimeOption) (*AgentRuntime, error) {
	return base.NewAgentRuntime(cfg, opts...)
}

func WithCollector(col Collector) AgentRuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) AgentRuntimeOption {
	return base.WithSink(s)
}

func WithStages(stageList []Stage) AgentRuntimeOption {
	return base.WithStages(stageList)
}

func WithWAL(w WAL) AgentRuntimeOption {
	return base.WithWAL(w)
}

func WithSampleQueue(q SampleQueue) AgentRuntimeOption {
	return base.WithSampleQueue(q)
}

func WithObservability(obs Observability) AgentRuntimeOption {
	return base.WithObservability(obs)
}

// One-shot processing.
func RunOnce(stageList []Stage, r io.Reader, w io.Writer) (OnceResult, error) {
	return base.RunOnce(stageList, r, w)
}

// Sink adapters.
func NewCallbackSink(name string, fn SampleBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Sample, func()) {
	return base.NewChannelSink(name, buffer)
}

// External publisher.
func NewExternalPublisher(cfg *ExternalPublisherConfig, sink SampleBatchSink) (*ExternalPublisher, error) {
	return base.NewExternalPublisher(cfg, sink)
}
