package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/specialistvlad/familiar/internal/clock"
	"github.com/specialistvlad/familiar/internal/config"
	"github.com/specialistvlad/familiar/internal/ctxlog"
	"github.com/specialistvlad/familiar/internal/metrics"
	"github.com/specialistvlad/familiar/internal/report"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *config.Model
	clock    clock.Clock
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	latest   *report.Latest
}

// Option customises an App at construction.
type Option func(*App)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(a *App) { a.clock = clk }
}

// NewApp is the constructor for the main application. It builds the App's
// own logger and metrics registry and loads the configuration through loader.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Port != nil {
		model.Server.Port = *appConfig.Port
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := prometheus.NewRegistry()
	a := &App{
		outW:     outW,
		logger:   logger,
		config:   model,
		clock:    clock.Real{},
		registry: reg,
		metrics:  metrics.MustNew(reg),
		latest:   &report.Latest{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the loaded configuration model.
func (a *App) Config() *config.Model {
	return a.config
}

// Latest returns the most recent pass status, if any pass has completed.
func (a *App) Latest() (report.Status, bool) {
	return a.latest.Get()
}
