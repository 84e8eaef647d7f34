package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"taskbridge/internal/config"
	"taskbridge/internal/host"
)

// Engine owns bridge component lifecycles.
// Params: runner list and logger.
// Returns: bridge runtime engine.
type Engine struct {
	runners []runner
	logger  *slog.Logger
}

type runner interface {
	run(context.Context) error
}

// connectionStore adapts file-backed settings persistence to the
// dispatcher's store interface.
type connectionStore struct {
	path string
}

// Save persists settings to the connection state file.
// Params: settings connection settings to persist.
// Returns: persistence error.
func (s connectionStore) Save(settings config.InfluxConfig) error {
	return config.SaveConnection(s.path, settings)
}

// NewFromConfig builds all bridge components from validated config.
// Params: ctx lifecycle context used by fire-and-forget sends; cfg validated
// runtime config; logger initialized logger.
// Returns: engine with wired components or error.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	hostClient := host.NewClient(cfg.Host.URL, cfg.Host.Token, cfg.Host.Timeout.Duration)
	cache := NewMetadataCache(hostClient)
	enricher := NewEnricher(cache)
	sender := NewDeliveryClient(cfg.Host.Timeout.Duration)

	dispatcher, err := NewDispatcher(
		ctx,
		DispatcherConfig{
			Influx:          cfg.Influx,
			Debounce:        cfg.Sync.Debounce.Duration,
			BatchSize:       cfg.Sync.BatchSize,
			IncludeProjects: cfg.Sync.IncludeProjects,
			ExcludeProjects: cfg.Sync.ExcludeProjects,
		},
		DispatcherDeps{
			Cache:    cache,
			Enricher: enricher,
			Sender:   sender,
			Tasks:    hostClient,
			Notifier: hostClient,
			Store:    connectionStore{path: cfg.StatePath},
			Logger:   logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	control, err := NewControlServer(cfg.Control, dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("init control server: %w", err)
	}

	runners := []runner{dispatcher, control}

	if cfg.Stats.Enabled {
		stats, statsErr := NewStatsWorker(cfg.Stats.Interval.Duration, dispatcher, logger)
		if statsErr != nil {
			return nil, fmt.Errorf("init stats worker: %w", statsErr)
		}
		runners = append(runners, stats)
	}

	return &Engine{
		runners: runners,
		logger:  logger,
	}, nil
}

// Run starts all runners and waits for context cancellation.
// Params: ctx lifecycle context.
// Returns: nil on graceful stop.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(len(e.runners))

	for _, r := range e.runners {
		go func(activeRunner runner) {
			defer wg.Done()
			if err := activeRunner.run(ctx); err != nil {
				e.logger.Error("runner stopped with error", slog.String("error", err.Error()))
			}
		}(r)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}
