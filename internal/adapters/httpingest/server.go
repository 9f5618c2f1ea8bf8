// Package httpingest exposes the push intake: collectors that cannot run as
// subprocesses POST line-protocol bodies to /api/v1/write.
package httpingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

const maxBodyBytes = 10 << 20

// Config describes the ingest listener. RateLimit is requests per second;
// zero disables limiting.
type Config struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

func (c *Config) ApplyDefaults() {
	if c.Burst <= 0 {
		c.Burst = 10
	}
}

// Submit hands one parsed sample to the intake path; false means the sample
// was rejected by backpressure policy.
type Submit func(*domain.Sample) bool

type Server struct {
	cfg     Config
	submit  Submit
	logger  *zap.SugaredLogger
	obs     ports.Observability
	limiter *rate.Limiter
	srv     *http.Server
}

func NewServer(cfg Config, submit Submit, logger *zap.SugaredLogger, obs ports.Observability) *Server {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{cfg: cfg, submit: submit, logger: logger, obs: obs}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return s
}

// Handler builds the chi router; split out from Start so tests can drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(LogMiddleware(s.logger))
	r.Post("/api/v1/write", s.handleWrite)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) Start() error {
	if s.cfg.Addr == "" {
		return errors.New("httpingest: addr is required")
	}
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("http ingest server exited", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	s.obs.IncCounter("netobs_http_requests_total", 1)

	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	// Read one byte past the limit so truncation is detected instead of
	// silently turning the cut line into a parse error.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBodyBytes {
		http.Error(w, "body exceeds size limit", http.StatusRequestEntityTooLarge)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	var accepted, skipped, rejected int
	for _, line := range strings.Split(string(body), "\n") {
		sample, err := lineproto.Parse(line)
		if err != nil {
			if errors.Is(err, lineproto.ErrEmptyLine) {
				continue
			}
			skipped++
			s.obs.IncCounter("netobs_parse_errors_total", 1)
			s.obs.RecordDrop("http_ingest", "parse_error")
			continue
		}
		if s.submit(sample) {
			accepted++
		} else {
			rejected++
		}
	}

	if accepted == 0 && skipped > 0 {
		http.Error(w, "no valid lines in body", http.StatusBadRequest)
		return
	}
	if rejected > 0 {
		http.Error(w, "intake saturated", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("X-Netobs-Accepted", fmt.Sprint(accepted))
	w.Header().Set("X-Netobs-Skipped", fmt.Sprint(skipped))
	w.WriteHeader(http.StatusNoContent)
}
