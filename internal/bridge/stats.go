package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	goprocess "github.com/shirou/gopsutil/v4/process"

	"taskbridge/internal/lineproto"
)

// statsMeasurement names the self-telemetry series, kept separate from the
// configured task measurement.
const statsMeasurement = "bridge_stats"

// pointReporter is the ambient delivery hook for background workers.
// Params: operation label and point batch.
// Returns: none; failures are absorbed by the reporter.
type pointReporter interface {
	ReportPoints(name string, points []lineproto.Point)
}

// StatsWorker periodically reports the bridge's own process stats as
// points, so the dashboard can plot exporter health next to task data.
// Params: report interval, ambient reporter, and logger.
// Returns: runnable stats worker instance.
type StatsWorker struct {
	interval time.Duration
	reporter pointReporter
	logger   *slog.Logger
	proc     *goprocess.Process
}

// NewStatsWorker creates a stats worker.
// Params: interval report cadence; reporter ambient delivery hook; logger
// root logger.
// Returns: worker instance or validation error.
func NewStatsWorker(interval time.Duration, reporter pointReporter, logger *slog.Logger) (*StatsWorker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("stats interval must be > 0")
	}
	if reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &StatsWorker{
		interval: interval,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// run reports process stats on a fixed cadence until cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (w *StatsWorker) run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.reportOnce(ctx)
		}
	}
}

// reportOnce collects one stats point and hands it to the reporter.
// Params: ctx for cancellation.
// Returns: none; scrape failures are logged and skipped.
func (w *StatsWorker) reportOnce(ctx context.Context) {
	point, err := w.collect(ctx)
	if err != nil {
		w.logger.Error("scrape bridge stats failed", slog.String("error", err.Error()))
		return
	}
	w.reporter.ReportPoints("stats report", []lineproto.Point{point})
}

// collect scrapes CPU, resident memory, and goroutine count for this
// process.
// Params: ctx for cancellation.
// Returns: one stats point or scrape error.
func (w *StatsWorker) collect(ctx context.Context) (lineproto.Point, error) {
	if w.proc == nil {
		proc, err := goprocess.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return lineproto.Point{}, fmt.Errorf("open own process: %w", err)
		}
		w.proc = proc
	}

	cpuUtil, err := w.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return lineproto.Point{}, fmt.Errorf("read process cpu: %w", err)
	}
	memInfo, err := w.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return lineproto.Point{}, fmt.Errorf("read process memory: %w", err)
	}

	point := lineproto.Point{
		Measurement: statsMeasurement,
		TimestampMs: time.Now().UnixMilli(),
	}
	point.AddTag("service", "bridge")
	point.AddField("cpu_percent", cpuUtil)
	point.AddField("rss_bytes", memInfo.RSS)
	point.AddField("goroutines", int64(runtime.NumGoroutine()))
	return point, nil
}
