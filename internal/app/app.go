package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/hcl_adapter"
	"github.com/vk/formulagrid/internal/metrics"
	"github.com/vk/formulagrid/internal/scheduler"
	"github.com/vk/formulagrid/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	loader    *config.Registry
	scheduler *scheduler.Scheduler
	metrics   *metrics.Collector

	// watchDebounce is how long Watch waits for more file events before
	// re-running.
	watchDebounce time.Duration

	mu         sync.RWMutex
	lastReport *scheduler.Report
}

// NewApp is the constructor for the main application. Results are written
// to outW (unless the config names an output file) and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")
	logger.Debug("Configuration loaded.", "paths", cfg.EntityPaths, "workers", cfg.Workers, "output_format", cfg.OutputFormat, "watch", cfg.Watch)

	registry, err := config.NewRegistry(hcl_adapter.NewLoader(), yaml_adapter.NewLoader())
	if err != nil {
		return nil, fmt.Errorf("failed to register entity loaders: %w", err)
	}
	logger.Debug("Entity loaders registered.", "extensions", registry.Extensions())

	collector := metrics.New()
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: registry,
		scheduler: scheduler.New(scheduler.Config{
			Workers: cfg.Workers,
			Metrics: collector,
		}),
		metrics:       collector,
		watchDebounce: 200 * time.Millisecond,
	}, nil
}

// Metrics returns the application's metrics collector.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// LastReport returns the report of the most recent completed run, or nil.
func (a *App) LastReport() *scheduler.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastReport
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
