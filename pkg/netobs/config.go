package netobs

import (
	"github.com/network-observability/network-observability-lab/internal/adapters/collector"
	"github.com/network-observability/network-observability-lab/internal/adapters/httpingest"
	"github.com/network-observability/network-observability-lab/internal/adapters/sink"
	"github.com/network-observability/network-observability-lab/internal/app/config"
	"github.com/network-observability/network-observability-lab/internal/stages"
)

// Config aliases for external callers.
type (
	Config             = config.Config
	CollectorsConfig   = config.CollectorsConfig
	IngestConfig       = config.IngestConfig
	SinksConfig        = config.SinksConfig
	WriterSinkConfig   = config.WriterSinkConfig
	PostgresSinkConfig = config.PostgresSinkConfig
	NATSSinkConfig     = sink.NATSConfig
	MetricsConfig      = config.MetricsConfig
	WALConfig          = config.WALConfig
	LoggingConfig      = config.LoggingConfig
	ExecConfig         = collector.ExecConfig
	TCPConfig          = collector.TCPConfig
	HTTPIngestConfig   = httpingest.Config
	StageConfig        = stages.Config
)

// LoadConfig reads, defaults, and validates a YAML agent configuration.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// BuildStages turns stage declarations into the frozen ordered stage list.
func BuildStages(cfgs []StageConfig) ([]Stage, error) {
	return stages.Build(cfgs)
}
