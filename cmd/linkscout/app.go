package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aleister1102/linkscout/internal/background"
	"github.com/aleister1102/linkscout/internal/config"
	"github.com/aleister1102/linkscout/internal/debrid"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/engine"
	"github.com/aleister1102/linkscout/internal/logger"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/aleister1102/linkscout/internal/reporter"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// app carries what every command builds before doing its work
type app struct {
	cfg       *config.GlobalConfig
	logger    zerolog.Logger
	sessionID string
	registry  *prometheus.Registry
	metrics   *metrics.Metrics

	closers []func() error
}

// newApp loads and validates the configuration, then builds the logger and
// the metrics registry
func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.LoadGlobalConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	zLogger, err := logger.NewWithSessionID(cfg.LogConfig, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	return &app{
		cfg:       cfg,
		logger:    zLogger,
		sessionID: sessionID,
		registry:  registry,
		metrics:   metrics.New(registry),
	}, nil
}

// newBackground builds the debrid-backed collaborator with the configured
// report sinks
func (a *app) newBackground() (*background.Service, error) {
	api, err := debrid.NewClient(a.cfg.BackgroundConfig, a.logger)
	if err != nil {
		return nil, fmt.Errorf("could not create debrid client: %w", err)
	}

	sinks := reporter.Multi{reporter.NewLogReporter(a.logger)}
	if a.cfg.ReporterConfig.ParquetPath != "" {
		pr, err := reporter.NewParquetReporter(a.cfg.ReporterConfig, a.sessionID, a.logger)
		if err != nil {
			return nil, fmt.Errorf("could not create parquet reporter: %w", err)
		}
		a.closers = append(a.closers, pr.Close)
		sinks = append(sinks, pr)
	}

	return background.NewService(api, sinks, a.logger), nil
}

// newEngine builds an engine for doc using the scanner configuration
func (a *app) newEngine(ctx context.Context, doc dom.Document, bg background.Client, prefs preferences.Store) *engine.Engine {
	e := engine.New(ctx, doc, bg, prefs, engine.Options{
		SessionID:      a.sessionID,
		PatternTTL:     a.cfg.ScannerConfig.PatternTTL(),
		StrictPatterns: a.cfg.ScannerConfig.StrictPatterns,
		Debounce:       a.cfg.ScannerConfig.Debounce(),
		Metrics:        a.metrics,
	}, a.logger)
	a.closers = append(a.closers, func() error {
		e.Close()
		return nil
	})
	return e
}

// serveMetrics exposes the registry until the app is closed. It does nothing
// when no listen address is configured.
func (a *app) serveMetrics() {
	addr := a.cfg.MetricsConfig.ListenAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// close runs the registered closers in reverse order
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
