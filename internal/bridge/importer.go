package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"taskbridge/internal/host"
	"taskbridge/internal/lineproto"
)

// runImport exports the full task history in sequential batches. The first
// failing batch aborts the run with a single failure notification; partial
// counts are not reported. One success notification carries the total.
// Params: ctx for cancellation.
// Returns: none.
func (d *Dispatcher) runImport(ctx context.Context) {
	if err := d.cache.Refresh(ctx); err != nil {
		d.logger.Warn("metadata refresh failed before import", slog.String("error", err.Error()))
	}

	cfg := d.ActiveConfig()
	if !cfg.Configured() {
		d.notify("History import failed: endpoint URL and token are required.", host.SeverityError)
		return
	}

	tasks, err := d.collectTasks(ctx)
	if err != nil {
		d.logger.Error("history import failed", slog.String("error", err.Error()))
		d.notify(fmt.Sprintf("History import failed: %v", err), host.SeverityError)
		return
	}

	batches := 0
	for start := 0; start < len(tasks); start += d.cfg.BatchSize {
		end := start + d.cfg.BatchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		points := make([]lineproto.Point, 0, end-start)
		for _, task := range tasks[start:end] {
			points = append(points, d.enricher.Enrich(task, cfg.Measurement))
		}

		if err := d.sender.Send(ctx, cfg, points); err != nil {
			d.logger.Error(
				"history import failed",
				slog.Int("batch", batches+1),
				slog.String("error", err.Error()),
			)
			d.notify(fmt.Sprintf("History import failed: %v", err), host.SeverityError)
			return
		}
		batches++
	}

	d.logger.Info(
		"history import finished",
		slog.Int("tasks", len(tasks)),
		slog.Int("batches", batches),
	)
	d.notify(fmt.Sprintf("History import finished: %d tasks exported.", len(tasks)), host.SeverityInfo)
}

// collectTasks fetches archived and active tasks and applies project masks.
// Archived tasks come first so the export is roughly chronological.
// Params: ctx for cancellation.
// Returns: filtered task list or fetch error.
func (d *Dispatcher) collectTasks(ctx context.Context) ([]host.Task, error) {
	if d.tasks == nil {
		return nil, fmt.Errorf("no task source available")
	}

	archived, err := d.tasks.ArchivedTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch archived tasks: %w", err)
	}
	active, err := d.tasks.ActiveTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch active tasks: %w", err)
	}

	all := make([]host.Task, 0, len(archived)+len(active))
	for _, task := range append(archived, active...) {
		if d.projectAllowed(task) {
			all = append(all, task)
		}
	}
	return all, nil
}
