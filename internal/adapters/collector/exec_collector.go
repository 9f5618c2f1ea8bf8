// Package collector implements the line-protocol sample sources: an exec
// collector that periodically runs a command and parses its stdout, and a TCP
// collector that accepts newline-delimited feeds.
package collector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// ExecConfig describes a command run once per interval. The command prints
// one sample per line on stdout; stderr is logged.
type ExecConfig struct {
	Command  []string      `yaml:"command"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (c *ExecConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 || c.Timeout > c.Interval {
		c.Timeout = c.Interval
	}
}

func (c *ExecConfig) Validate() error {
	if len(c.Command) == 0 {
		return errors.New("command is required")
	}
	return nil
}

type ExecCollector struct {
	cfg    ExecConfig
	obs    ports.Observability
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

func NewExecCollector(cfg ExecConfig, obs ports.Observability) (*ExecCollector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ExecCollector{cfg: cfg, obs: obs}, nil
}

func (c *ExecCollector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("exec collector already started")
	}
	c.started = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		c.runOnce(ctx, out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runOnce(ctx, out)
			}
		}
	}()
	return nil
}

func (c *ExecCollector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	c.started = false
	return nil
}

func (c *ExecCollector) runOnce(ctx context.Context, out chan<- *domain.Sample) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.cfg.Command[0], c.cfg.Command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.obs.LogError("exec_collector_run_failed", fmt.Errorf("%w: %s", err, stderr.String()),
			ports.Field{Key: "command", Value: c.cfg.Command[0]})
		return
	}

	EmitLines(ctx, &stdout, out, c.obs, "exec_collector")
}

// EmitLines parses newline-delimited samples from r onto out, skipping and
// counting malformed lines so one bad record never stalls the stream.
func EmitLines(ctx context.Context, r io.Reader, out chan<- *domain.Sample, obs ports.Observability, source string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		s, err := lineproto.Parse(scanner.Text())
		if err != nil {
			if !errors.Is(err, lineproto.ErrEmptyLine) {
				obs.IncCounter("netobs_parse_errors_total", 1)
				obs.RecordDrop(source, "parse_error")
				obs.LogError("parse_line_failed", err, ports.Field{Key: "source", Value: source})
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- s:
		}
	}
	if err := scanner.Err(); err != nil {
		obs.LogError("read_lines_failed", err, ports.Field{Key: "source", Value: source})
	}
}

var _ ports.Collector = (*ExecCollector)(nil)
