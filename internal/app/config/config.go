package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/network-observability/network-observability-lab/internal/adapters/collector"
	"github.com/network-observability/network-observability-lab/internal/adapters/httpingest"
	"github.com/network-observability/network-observability-lab/internal/adapters/sink"
	"github.com/network-observability/network-observability-lab/internal/ports"
	"github.com/network-observability/network-observability-lab/internal/stages"
)

// Config is the full agent configuration. The stage list is validated and
// frozen at load time; nothing mutates it once the pipeline is running.
//
// Stage ordering is enforced (ascending order, declaration order on ties) but
// cross-stage key dependencies are not analyzed: if an enum stage reads a
// field a rename stage produces, the operator keeps rename at a lower order,
// exactly as the documented pipelines do.
type Config struct {
	Policy     ports.Policy     `yaml:"policy"`
	Collectors CollectorsConfig `yaml:"collectors"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Stages     []stages.Config  `yaml:"stages"`
	Sinks      SinksConfig      `yaml:"sinks"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	WAL        WALConfig        `yaml:"wal"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectorsConfig enables any subset of the built-in sample sources.
type CollectorsConfig struct {
	Exec *collector.ExecConfig `yaml:"exec,omitempty"`
	TCP  *collector.TCPConfig  `yaml:"tcp,omitempty"`
}

// IngestConfig controls the HTTP push receiver; Enabled gates the listener.
type IngestConfig struct {
	Enabled          bool `yaml:"enabled"`
	httpingest.Config `yaml:",inline"`
}

type SinksConfig struct {
	Writer   *WriterSinkConfig   `yaml:"writer,omitempty"`
	Postgres *PostgresSinkConfig `yaml:"postgres,omitempty"`
	NATS     *sink.NATSConfig    `yaml:"nats,omitempty"`
}

type WriterSinkConfig struct {
	Path string `yaml:"path"` // "-" or empty for stdout
}

type PostgresSinkConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // json or console
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 10 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 5_000
	}
	if c.Policy.Workers == 0 {
		c.Policy.Workers = 4
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9273"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
	if c.Ingest.Enabled && c.Ingest.Addr == "" {
		c.Ingest.Addr = ":8086"
	}
	if c.Sinks.Postgres != nil && c.Sinks.Postgres.Table == "" {
		c.Sinks.Postgres.Table = "samples"
	}
	if c.Collectors.Exec != nil {
		c.Collectors.Exec.ApplyDefaults()
	}
	if c.Sinks.NATS != nil {
		c.Sinks.NATS.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Collectors.Exec != nil {
		if err := c.Collectors.Exec.Validate(); err != nil {
			return fmt.Errorf("collectors.exec: %w", err)
		}
	}
	if c.Collectors.TCP != nil {
		if err := c.Collectors.TCP.Validate(); err != nil {
			return fmt.Errorf("collectors.tcp: %w", err)
		}
	}
	if c.Sinks.Postgres != nil && c.Sinks.Postgres.ConnString == "" {
		return fmt.Errorf("sinks.postgres.conn_string is required")
	}
	if c.Sinks.NATS != nil {
		if err := c.Sinks.NATS.Validate(); err != nil {
			return fmt.Errorf("sinks.nats: %w", err)
		}
	}
	if c.Sinks.Writer == nil && c.Sinks.Postgres == nil && c.Sinks.NATS == nil {
		return fmt.Errorf("at least one sink must be configured")
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_queue_full: unknown policy %q", c.Policy.OnQueueFull)
	}
	switch c.Policy.OnWALFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_wal_full: unknown policy %q", c.Policy.OnWALFull)
	}

	// Building the stage list exercises every per-stage validation.
	if _, err := stages.Build(c.Stages); err != nil {
		return fmt.Errorf("stages: %w", err)
	}
	return nil
}

// BuildStages returns the frozen ordered stage list declared in the config.
func (c *Config) BuildStages() ([]ports.Stage, error) {
	return stages.Build(c.Stages)
}

// BuildLogger constructs the agent logger from the logging block.
func (c *LoggingConfig) BuildLogger() (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if c.Encoding == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
