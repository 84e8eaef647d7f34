package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"taskbridge/internal/config"
	"taskbridge/internal/host"
	"taskbridge/internal/lineproto"
	"taskbridge/internal/match"
)

// Recognized inbound event types. Anything else is ignored without error.
const (
	EventTaskCompleted      = "task-completed"
	EventCurrentTaskChanged = "current-task-changed"
	EventTaskUpdated        = "task-updated"
	EventTaskDeleted        = "task-deleted"
	EventDayFinished        = "day-finished"
	EventSaveConfig         = "save-config"
	EventTestConnection     = "test-connection"
	EventImportHistory      = "import-history"
)

// Event is one inbound lifecycle or control message.
// Params: type discriminator, optional task payload for lifecycle events,
// optional connection settings for control messages.
// Returns: one routed message.
type Event struct {
	Type   string               `json:"type"`
	Task   *host.Task           `json:"task,omitempty"`
	Config *config.InfluxConfig `json:"config,omitempty"`
}

// Sender delivers point batches to the ingestion endpoint.
// Params: context, connection settings, and point batch.
// Returns: classified delivery error or nil.
type Sender interface {
	Send(ctx context.Context, cfg config.InfluxConfig, points []lineproto.Point) error
}

// Notifier shows user-visible notifications in the host UI.
// Params: context, message text, and severity level.
// Returns: delivery error when the notification cannot be shown.
type Notifier interface {
	Notify(ctx context.Context, message string, severity string) error
}

// TaskSource provides task listings for bulk import.
// Params: context for cancellation.
// Returns: task lists or fetch error.
type TaskSource interface {
	ActiveTasks(ctx context.Context) ([]host.Task, error)
	ArchivedTasks(ctx context.Context) ([]host.Task, error)
}

// ConnectionStore persists replaced connection settings.
// Params: settings to persist.
// Returns: persistence error.
type ConnectionStore interface {
	Save(settings config.InfluxConfig) error
}

// DispatcherConfig defines dispatcher runtime behavior.
// Params: initial connection settings, debounce window, import batch size,
// and project wildcard masks.
// Returns: dispatcher runtime configuration.
type DispatcherConfig struct {
	Influx          config.InfluxConfig
	Debounce        time.Duration
	BatchSize       int
	IncludeProjects []string
	ExcludeProjects []string
}

// DispatcherDeps carries dispatcher collaborators.
// Params: cache/enricher pipeline stages, sender transport, task source,
// notifier, connection store, and root logger.
// Returns: dependency set for NewDispatcher.
type DispatcherDeps struct {
	Cache    *MetadataCache
	Enricher *Enricher
	Sender   Sender
	Tasks    TaskSource
	Notifier Notifier
	Store    ConnectionStore
	Logger   *slog.Logger
}

// Dispatcher routes inbound events into the enrich/deliver pipeline. The
// active connection settings and the metadata tables are the only shared
// mutable state; both are replaced wholesale, never mutated in place.
// Params: runtime config and collaborators.
// Returns: event dispatcher instance.
type Dispatcher struct {
	ctx      context.Context
	cfg      DispatcherConfig
	active   atomic.Pointer[config.InfluxConfig]
	cache    *MetadataCache
	enricher *Enricher
	sender   Sender
	tasks    TaskSource
	notifier Notifier
	store    ConnectionStore
	logger   *slog.Logger
	debounce *Debouncer
	include  []match.Pattern
	exclude  []match.Pattern
}

// NewDispatcher builds an event dispatcher.
// Params: ctx lifecycle context used for fire-and-forget sends; cfg runtime
// settings; deps collaborator set.
// Returns: dispatcher instance or validation error.
func NewDispatcher(ctx context.Context, cfg DispatcherConfig, deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Cache == nil || deps.Enricher == nil {
		return nil, fmt.Errorf("cache and enricher are required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("connection store is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Debounce <= 0 {
		return nil, fmt.Errorf("debounce window must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0")
	}

	initial := cfg.Influx
	if strings.TrimSpace(initial.Measurement) == "" {
		initial.Measurement = DefaultMeasurement
	}

	dispatcher := &Dispatcher{
		ctx:      ctx,
		cfg:      cfg,
		cache:    deps.Cache,
		enricher: deps.Enricher,
		sender:   deps.Sender,
		tasks:    deps.Tasks,
		notifier: deps.Notifier,
		store:    deps.Store,
		logger:   deps.Logger,
		debounce: NewDebouncer(cfg.Debounce),
		include:  match.CompileList(cfg.IncludeProjects),
		exclude:  match.CompileList(cfg.ExcludeProjects),
	}
	dispatcher.active.Store(&initial)
	return dispatcher, nil
}

// ActiveConfig returns the current connection settings snapshot.
// Params: none.
// Returns: settings copy valid at call time.
func (d *Dispatcher) ActiveConfig() config.InfluxConfig {
	return *d.active.Load()
}

// HandleEvent routes one inbound event. Lifecycle sends are fire-and-forget
// with failures logged only; control flows report their outcome through a
// single user notification.
// Params: event decoded inbound message.
// Returns: none.
func (d *Dispatcher) HandleEvent(event Event) {
	switch event.Type {
	case EventTaskCompleted, EventCurrentTaskChanged:
		d.handleTaskEvent(event)
	case EventTaskUpdated:
		d.handleTaskUpdated(event)
	case EventTaskDeleted:
		d.handleTaskDeleted(event)
	case EventDayFinished:
		go d.notify("Day finished. Dashboard data is up to date.", host.SeverityInfo)
	case EventSaveConfig:
		d.handleSaveConfig(event)
	case EventTestConnection:
		go d.handleTestConnection(event)
	case EventImportHistory:
		go d.runImport(d.ctx)
	default:
		d.logger.Debug("ignoring unrecognized event", slog.String("type", event.Type))
	}
}

// handleTaskEvent enriches and sends one task immediately.
// Params: event lifecycle message with task payload.
// Returns: none.
func (d *Dispatcher) handleTaskEvent(event Event) {
	if event.Task == nil {
		d.logger.Debug("ignoring task event without task payload", slog.String("type", event.Type))
		return
	}
	if !d.projectAllowed(*event.Task) {
		return
	}

	task := *event.Task
	go d.bestEffort("task sync", func() error {
		return d.sendTask(task)
	})
}

// handleTaskUpdated schedules a debounced send for the updated task. A new
// update within the quiet period supersedes the pending one, so only the
// final state is sent.
// Params: event lifecycle message with task payload.
// Returns: none.
func (d *Dispatcher) handleTaskUpdated(event Event) {
	if event.Task == nil {
		d.logger.Debug("ignoring task event without task payload", slog.String("type", event.Type))
		return
	}
	if !d.projectAllowed(*event.Task) {
		return
	}

	task := *event.Task
	d.debounce.Submit(func() {
		d.bestEffort("task sync", func() error {
			return d.sendTask(task)
		})
	})
}

// handleTaskDeleted acknowledges a deletion without an outbound write.
// Deleted tasks are not represented in the time-series model; they age out
// of dashboards instead.
// Params: event lifecycle message.
// Returns: none.
func (d *Dispatcher) handleTaskDeleted(event Event) {
	id := unknownTaskID
	if event.Task != nil {
		id = taskID(*event.Task)
	}
	d.logger.Info("task deleted, no outbound write", slog.String("task_id", id))
}

// handleSaveConfig replaces the active connection settings and persists them.
// Params: event control message carrying the full settings object.
// Returns: none.
func (d *Dispatcher) handleSaveConfig(event Event) {
	if event.Config == nil {
		d.logger.Debug("ignoring save-config without settings payload")
		return
	}

	next := *event.Config
	if strings.TrimSpace(next.Measurement) == "" {
		next.Measurement = DefaultMeasurement
	}
	d.active.Store(&next)

	go func() {
		if err := d.store.Save(next); err != nil {
			d.logger.Error("persist connection settings failed", slog.String("error", err.Error()))
			d.notify(fmt.Sprintf("Saving connection settings failed: %v", err), host.SeverityError)
			return
		}
		d.logger.Info("connection settings saved", slog.String("url", next.URL))
		d.notify("Connection settings saved.", host.SeverityInfo)
	}()
}

// handleTestConnection sends a heartbeat point with the supplied settings
// override and reports the outcome to the user. Missing settings are
// reported without attempting any network call.
// Params: event control message with optional settings override.
// Returns: none.
func (d *Dispatcher) handleTestConnection(event Event) {
	cfg := d.ActiveConfig()
	if event.Config != nil {
		cfg = *event.Config
		if strings.TrimSpace(cfg.Measurement) == "" {
			cfg.Measurement = DefaultMeasurement
		}
	}

	if !cfg.Configured() {
		d.notify("Connection test failed: endpoint URL and token are required.", host.SeverityError)
		return
	}

	point := HeartbeatPoint(cfg.Measurement, time.Now())
	if err := d.sender.Send(d.ctx, cfg, []lineproto.Point{point}); err != nil {
		d.notify(fmt.Sprintf("Connection test failed: %v", err), host.SeverityError)
		return
	}
	d.notify("Connection test passed.", host.SeverityInfo)
}

// sendTask enriches one task and delivers it with the active settings.
// Params: task host task snapshot.
// Returns: delivery error for the best-effort wrapper.
func (d *Dispatcher) sendTask(task host.Task) error {
	cfg := d.ActiveConfig()
	point := d.enricher.Enrich(task, cfg.Measurement)
	return d.sender.Send(d.ctx, cfg, []lineproto.Point{point})
}

// ReportPoints delivers ambient points with the active settings, absorbing
// failures under the given operation name.
// Params: name operation label for logs; points batch to deliver.
// Returns: none.
func (d *Dispatcher) ReportPoints(name string, points []lineproto.Point) {
	d.bestEffort(name, func() error {
		return d.sender.Send(d.ctx, d.ActiveConfig(), points)
	})
}

// projectAllowed applies configured project wildcard masks to one task.
// Params: task host task record.
// Returns: true when the task's project passes include/exclude masks.
func (d *Dispatcher) projectAllowed(task host.Task) bool {
	if len(d.include) == 0 && len(d.exclude) == 0 {
		return true
	}

	name := d.cache.ProjectName(task.ProjectID)
	if len(d.include) > 0 && !match.MatchAny(d.include, name) {
		d.logger.Debug("task filtered by project masks", slog.String("project", name))
		return false
	}
	if match.MatchAny(d.exclude, name) {
		d.logger.Debug("task filtered by project masks", slog.String("project", name))
		return false
	}
	return true
}

// bestEffort runs one operation and absorbs its failure: unconfigured
// connections are skipped quietly, everything else is logged. Background
// sync never interrupts the user with errors.
// Params: name operation label for logs; op failing operation.
// Returns: none.
func (d *Dispatcher) bestEffort(name string, op func() error) {
	err := op()
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotConfigured) {
		d.logger.Debug(name+" skipped", slog.String("reason", "connection not configured"))
		return
	}
	d.logger.Error(name+" failed", slog.String("error", err.Error()))
}

// notify shows one user notification and logs delivery problems.
// Params: message notification text; severity info/error level.
// Returns: none.
func (d *Dispatcher) notify(message string, severity string) {
	if err := d.notifier.Notify(d.ctx, message, severity); err != nil {
		d.logger.Error(
			"show notification failed",
			slog.String("message", message),
			slog.String("error", err.Error()),
		)
	}
}

// run refreshes metadata once at startup and holds the debouncer open until
// context cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (d *Dispatcher) run(ctx context.Context) error {
	if err := d.cache.Refresh(ctx); err != nil {
		d.logger.Warn("metadata refresh failed, keeping stale tables", slog.String("error", err.Error()))
	}

	<-ctx.Done()
	d.debounce.Stop()
	return nil
}
