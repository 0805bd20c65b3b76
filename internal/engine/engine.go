// Package engine ties the link-detection pieces to one document for one
// session: pattern cache, extractor, unrestrict orchestrator and scheduler.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/linkscout/internal/background"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/extractor"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/orchestrator"
	"github.com/aleister1102/linkscout/internal/patterns"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/aleister1102/linkscout/internal/scanner"
	"github.com/aleister1102/linkscout/internal/scheduler"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	SessionID      string
	PatternTTL     time.Duration
	StrictPatterns bool
	Debounce       time.Duration
	Clock          clockwork.Clock
	Metrics        *metrics.Metrics
}

// Engine is the per-document context object. Everything that lives for the
// session (caches, timers, flags, subscriptions) is owned here and torn down
// by Close.
type Engine struct {
	sessionID string
	doc       dom.Document
	prefs     preferences.Store
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	patterns     *patterns.Cache
	orchestrator *orchestrator.AutoUnrestrictOrchestrator
	scanEngine   *scanner.ScanEngine
	scheduler    *scheduler.ScanScheduler

	mu           sync.Mutex
	subscription preferences.Subscription
	started      bool
	closed       bool
}

// New builds an engine for doc. ctx is the root context of every scan the
// engine starts on its own; Close cancels it.
func New(
	ctx context.Context,
	doc dom.Document,
	bg background.Client,
	prefs preferences.Store,
	opts Options,
	logger zerolog.Logger,
) *Engine {
	if opts.SessionID == "" {
		opts.SessionID = uuid.New().String()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	logger = logger.With().Str("session_id", opts.SessionID).Logger()
	rootCtx, cancel := context.WithCancel(ctx)

	cache := patterns.NewCache(bg, patterns.CacheOptions{
		TTL:     opts.PatternTTL,
		Strict:  opts.StrictPatterns,
		Clock:   opts.Clock,
		Metrics: opts.Metrics,
	}, logger)
	orch := orchestrator.NewAutoUnrestrictOrchestrator(bg, opts.Metrics, logger)
	scanEngine := scanner.NewScanEngine(cache, extractor.New(logger), orch, opts.Metrics, logger)
	sched := scheduler.NewScanScheduler(rootCtx, doc, scanEngine, orch, bg, prefs, scheduler.Options{
		Debounce: opts.Debounce,
		Clock:    opts.Clock,
		Metrics:  opts.Metrics,
	}, logger)

	return &Engine{
		sessionID:    opts.SessionID,
		doc:          doc,
		prefs:        prefs,
		logger:       logger.With().Str("component", "Engine").Logger(),
		ctx:          rootCtx,
		cancel:       cancel,
		patterns:     cache,
		orchestrator: orch,
		scanEngine:   scanEngine,
		scheduler:    sched,
	}
}

// Start applies the current preferences once and re-applies them on every
// change. Calling it again is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.subscription = e.prefs.Subscribe(func(p models.Preferences) {
		e.logger.Info().
			Bool("auto_scan", p.AutoScanEnabled).
			Bool("auto_unrestrict", p.AutoUnrestrict).
			Msg("Preferences changed")
		e.scheduler.InitAutoScan(e.ctx)
	})
	e.mu.Unlock()

	e.logger.Info().Msg("Engine started")
	e.scheduler.InitAutoScan(e.ctx)
}

// ScanPageLinks answers SCAN_PAGE_LINKS: one scan of the document, outside
// the auto-scan guard, with failures reported in the response.
func (e *Engine) ScanPageLinks(ctx context.Context) models.ScanResponse {
	links, err := e.scanEngine.Scan(ctx, e.doc)
	if err != nil {
		e.logger.Error().Err(err).Msg("On-demand scan failed")
		return models.NewScanFailure(err)
	}
	return models.NewScanSuccess(links)
}

// Patterns returns the current hoster pattern set
func (e *Engine) Patterns(ctx context.Context) patterns.Set {
	return e.patterns.Patterns(ctx)
}

// RefreshPatterns drops the cached pattern set and fetches a new one
func (e *Engine) RefreshPatterns(ctx context.Context) patterns.Set {
	e.patterns.Invalidate()
	return e.patterns.Patterns(ctx)
}

// Stats returns the orchestrator counters for this session
func (e *Engine) Stats() orchestrator.Stats {
	return e.orchestrator.Stats()
}

// State returns the scheduler state
func (e *Engine) State() scheduler.State {
	return e.scheduler.State()
}

// SessionID identifies this engine in logs and reports
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Close releases the preference subscription, the document watch and the
// pending timer, then cancels the root context. A scan already running
// finishes against a canceled context.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sub := e.subscription
	e.subscription = nil
	e.mu.Unlock()

	if sub != nil {
		sub.Release()
	}
	e.scheduler.Close()
	e.cancel()

	stats := e.orchestrator.Stats()
	e.logger.Info().
		Int("processed", stats.Processed).
		Int("cached", stats.Cached).
		Int("failed", stats.Failed).
		Msg("Engine closed")
}
