package netobs

import (
	"context"
	"fmt"
)

// Flow assembles an agent in three steps: Conf reads the YAML profile,
// StreamIN overrides the intake side (collectors, WAL, queue), and StreamOUT
// picks where normalized telemetry lands before handing back a runnable
// AgentRuntime. The zero-override path Conf → Run uses exactly the adapters
// named in the profile.
type Flow struct {
	cfg  *Config
	opts []AgentRuntimeOption
}

// FlowOption mutates the Flow after the profile is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the intake side of the pipeline.
type StreamInOption func(*Flow)

// StreamOutOption configures the egress side of the pipeline.
type StreamOutOption func(*Flow)

// Conf reads the agent profile from disk and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the loaded profile so callers can tweak policy or sinks
// before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw AgentRuntimeOption values for advanced scenarios.
func (f *Flow) Options(opts ...AgentRuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records intake overrides: extra collectors, a different WAL or
// queue, or a non-Prometheus observability backend.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records egress overrides and builds an AgentRuntime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*AgentRuntime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewAgentRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT followed by AgentRuntime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends AgentRuntimeOption values during Conf.
func WithFlowOptions(opts ...AgentRuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInCollector adds a collector beyond the profile's exec/tcp ones,
// such as a gNMI subscriber, an SNMP bridge, or a lab topology simulator.
func StreamInCollector(col Collector) StreamInOption {
	return func(f *Flow) {
		if f != nil && col != nil {
			f.appendOptions(WithCollector(col))
		}
	}
}

// StreamInQueue swaps the bounded in-memory queue for a caller-provided one.
func StreamInQueue(q SampleQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithSampleQueue(q))
		}
	}
}

// StreamInWAL replaces the file-backed WAL, e.g. with an in-memory one for
// topologies where durability across agent restarts is not needed.
func StreamInWAL(w WAL) StreamInOption {
	return func(f *Flow) {
		if f != nil && w != nil {
			f.appendOptions(WithWAL(w))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutSink replaces the profile's sinks with a custom Sink.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutStages replaces the YAML-configured normalization stages, for
// callers that derive their stage list from device inventory instead of a
// static profile.
func StreamOutStages(stageList []Stage) StreamOutOption {
	return func(f *Flow) {
		if f != nil && stageList != nil {
			f.appendOptions(WithStages(stageList))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback forwards normalized batches to fn; see NewCallbackSink.
func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...AgentRuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
