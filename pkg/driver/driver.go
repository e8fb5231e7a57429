// Package driver replays a workload of operations against a dispatcher and
// reports latency statistics per operation kind.
package driver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sanonone/kektorsnb/pkg/ops"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Executor runs one operation. *ops.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, op ops.Operation) (ops.Result, error)
}

// Entry is one line of a JSON-lines workload file.
type Entry struct {
	Kind   ops.Kind        `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// ReadWorkload parses a JSON-lines workload. Blank lines and lines starting
// with '#' are ignored.
func ReadWorkload(r io.Reader) ([]ops.Operation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var workload []ops.Operation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		op, err := ops.Decode(entry.Kind, entry.Params)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		workload = append(workload, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return workload, nil
}

// KindStats summarises the executions of one operation kind. Latencies cover
// failed executions too.
type KindStats struct {
	Count  int           `json:"count"`
	Errors int           `json:"errors"`
	Mean   time.Duration `json:"mean"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      string               `json:"run_id"`
	Started    time.Time            `json:"started"`
	Duration   time.Duration        `json:"duration"`
	Operations int                  `json:"operations"`
	Errors     int                  `json:"errors"`
	PerKind    map[string]KindStats `json:"per_kind"`
}

// Throughput returns operations per second.
func (r *Report) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Operations) / r.Duration.Seconds()
}

// Driver runs workloads with a bounded number of concurrent operations.
type Driver struct {
	exec    Executor
	workers int
	logger  *slog.Logger
}

// New returns a driver with the given concurrency; values below one run
// operations sequentially.
func New(exec Executor, workers int) *Driver {
	if workers < 1 {
		workers = 1
	}
	return &Driver{exec: exec, workers: workers, logger: slog.Default()}
}

// WithLogger replaces the logger.
func (d *Driver) WithLogger(logger *slog.Logger) *Driver {
	d.logger = logger
	return d
}

type sample struct {
	kind    ops.Kind
	latency time.Duration
	failed  bool
}

// Run executes every operation of workload once, each in its own scope.
// Operation failures are counted in the report; Run itself only fails when
// ctx is done before the workload completes.
func (d *Driver) Run(ctx context.Context, workload []ops.Operation) (*Report, error) {
	report := &Report{
		RunID:   uuid.New().String(),
		Started: time.Now(),
	}
	d.logger.Info("Starting workload run", "run_id", report.RunID, "operations", len(workload), "workers", d.workers)

	samples := make([]sample, 0, len(workload))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, op := range workload {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			_, err := d.exec.Execute(gctx, op)
			s := sample{kind: op.Kind(), latency: time.Since(start), failed: err != nil}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return err
				}
				d.logger.Debug("Operation failed", "run_id", report.RunID, "op", op.Kind().String(), "error", err)
			}
			mu.Lock()
			samples = append(samples, s)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	report.Duration = time.Since(report.Started)
	report.Operations = len(samples)
	report.PerKind = summarise(samples)
	for _, ks := range report.PerKind {
		report.Errors += ks.Errors
	}

	d.logger.Info("Workload run completed",
		"run_id", report.RunID,
		"operations", report.Operations,
		"errors", report.Errors,
		"duration", report.Duration.String(),
	)
	return report, nil
}

func summarise(samples []sample) map[string]KindStats {
	latencies := make(map[ops.Kind][]float64)
	errs := make(map[ops.Kind]int)
	for _, s := range samples {
		latencies[s.kind] = append(latencies[s.kind], float64(s.latency))
		if s.failed {
			errs[s.kind]++
		}
	}

	out := make(map[string]KindStats, len(latencies))
	for kind, xs := range latencies {
		slices.Sort(xs)
		out[kind.String()] = KindStats{
			Count:  len(xs),
			Errors: errs[kind],
			Mean:   time.Duration(stat.Mean(xs, nil)),
			P50:    time.Duration(stat.Quantile(0.50, stat.Empirical, xs, nil)),
			P95:    time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
			P99:    time.Duration(stat.Quantile(0.99, stat.Empirical, xs, nil)),
		}
	}
	return out
}
