package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// TCPConfig describes the listener for newline-delimited line-protocol feeds.
type TCPConfig struct {
	Addr string `yaml:"addr"`
}

func (c *TCPConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}

// TCPCollector accepts connections and feeds each line as one sample.
type TCPCollector struct {
	cfg    TCPConfig
	obs    ports.Observability
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

func NewTCPCollector(cfg TCPConfig, obs ports.Observability) (*TCPCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TCPCollector{cfg: cfg, obs: obs}, nil
}

// Addr returns the bound listener address, useful when cfg.Addr used port 0.
func (c *TCPCollector) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return nil
	}
	return c.ln.Addr()
}

func (c *TCPCollector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("tcp collector already started")
	}

	ln, err := net.Listen("tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp collector listen: %w", err)
	}
	c.ln = ln
	c.started = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					c.obs.LogError("tcp_collector_accept_failed", err)
					continue
				}
			}
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				defer conn.Close()
				go func() {
					<-ctx.Done()
					conn.Close()
				}()
				EmitLines(ctx, conn, out, c.obs, "tcp_collector")
			}()
		}
	}()
	return nil
}

func (c *TCPCollector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.cancel()
	err := c.ln.Close()
	c.started = false
	c.mu.Unlock()

	c.wg.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

var _ ports.Collector = (*TCPCollector)(nil)
