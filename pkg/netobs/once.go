package netobs

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/network-observability/network-observability-lab/internal/app/pipeline"
	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/lineproto"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// OnceResult summarizes one RunOnce pass.
type OnceResult struct {
	Emitted int
	Dropped int
	Skipped int
}

// RunOnce reads line protocol from r, routes every sample through the stage
// list, and writes normalized lines to w. It is the one-shot workflow used by
// the CLI: pipe a collector script's output in, get normalized samples out.
// Malformed lines are skipped and counted, never fatal.
func RunOnce(stageList []Stage, r io.Reader, w io.Writer) (OnceResult, error) {
	router := pipeline.NewRouter(stageList, noopObs{})

	var res OnceResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		sample, err := lineproto.Parse(scanner.Text())
		if err != nil {
			if !errors.Is(err, lineproto.ErrEmptyLine) {
				res.Skipped++
			}
			continue
		}

		out, err := router.Route(sample)
		if err != nil || out == nil {
			res.Dropped++
			continue
		}

		if _, err := fmt.Fprintln(w, lineproto.Serialize(out)); err != nil {
			return res, err
		}
		res.Emitted++
	}
	if err := scanner.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// noopObs satisfies the Observability port for one-shot runs where metrics
// registration would be wasted.
type noopObs struct{}

func (noopObs) LogInfo(string, ...Field)                      {}
func (noopObs) LogError(string, error, ...Field)              {}
func (noopObs) LogCritical(string, error, ...Field)           {}
func (noopObs) IncCounter(string, float64)                    {}
func (noopObs) ObserveLatency(string, float64)                {}
func (noopObs) SetGauge(string, float64)                      {}
func (noopObs) RecordDrop(string, string)                     {}
func (noopObs) RecordDLQ(ports.WALEntryID, *domain.Sample, error) {}
