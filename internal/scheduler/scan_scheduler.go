package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period between the last insertion and a rescan
const DefaultDebounce = time.Second

// State describes what the scheduler is doing
type State int

const (
	StateIdle State = iota
	StateScanPending
	StateScanning
)

func (s State) String() string {
	switch s {
	case StateScanPending:
		return "scan-pending"
	case StateScanning:
		return "scanning"
	default:
		return "idle"
	}
}

// Scanner produces the links of a document
type Scanner interface {
	Scan(ctx context.Context, doc dom.Document) ([]models.DetectedLink, error)
}

// Processor runs auto-unrestrict over scan results, reporting whether any link
// gained a result
type Processor interface {
	Process(ctx context.Context, links []models.DetectedLink) bool
}

// Reporter delivers detected links to the background (REPORT_DETECTED_LINKS)
type Reporter interface {
	ReportDetectedLinks(ctx context.Context, links []models.DetectedLink) error
}

// Options tunes a ScanScheduler
type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
	Metrics  *metrics.Metrics
}

// ScanScheduler keeps the detected links of a live document current: it scans
// once when enabled, then rescans a debounce interval after the last node
// insertion. At most one scan runs at a time; overlapping requests are dropped.
type ScanScheduler struct {
	doc       dom.Document
	scanner   Scanner
	processor Processor
	reporter  Reporter
	prefs     preferences.Store
	debounce  time.Duration
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	// ctx is handed to scans started by the debounce timer
	ctx context.Context

	scanning atomic.Bool

	mu         sync.Mutex
	timer      clockwork.Timer
	generation uint64
	watch      dom.Watch
	closed     bool
	// enablement changes on every disable; an enable only installs its watch
	// if no disable happened since it started
	enablement uint64
}

// NewScanScheduler creates a scheduler for doc. ctx bounds every timer-driven scan.
func NewScanScheduler(
	ctx context.Context,
	doc dom.Document,
	scanner Scanner,
	processor Processor,
	reporter Reporter,
	prefs preferences.Store,
	opts Options,
	logger zerolog.Logger,
) *ScanScheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &ScanScheduler{
		ctx:       ctx,
		doc:       doc,
		scanner:   scanner,
		processor: processor,
		reporter:  reporter,
		prefs:     prefs,
		debounce:  opts.Debounce,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    logger.With().Str("component", "ScanScheduler").Logger(),
	}
}

// TriggerScan (re)arms the debounce timer. Only the last trigger of a burst
// leads to a scan.
func (s *ScanScheduler) TriggerScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopTimerLocked()
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.fire(gen) })
}

func (s *ScanScheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	s.PerformAutoScan(s.ctx)
}

// PerformAutoScan runs one scan-report-unrestrict cycle if auto-scan is enabled
// and no other scan is in flight.
func (s *ScanScheduler) PerformAutoScan(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		s.metrics.ScanDroppedInc()
		s.logger.Debug().Msg("Scan already in progress, skipping")
		return
	}
	defer s.scanning.Store(false)

	prefs := s.readPreferences(ctx)
	if !prefs.AutoScanEnabled {
		s.logger.Debug().Msg("Auto-scan disabled, skipping")
		return
	}

	links, err := s.scanner.Scan(ctx, s.doc)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Auto-scan failed")
		return
	}
	if len(links) == 0 {
		return
	}

	s.report(ctx, links)

	if prefs.AutoUnrestrict && s.processor != nil && s.processor.Process(ctx, links) {
		s.report(ctx, links)
	}
}

// InitAutoScan applies the current preferences: when auto-scan is on it scans
// immediately and makes sure the document is watched, otherwise it stops
// watching and cancels any pending rescan.
func (s *ScanScheduler) InitAutoScan(ctx context.Context) {
	if s.isClosed() {
		return
	}
	prefs := s.readPreferences(ctx)
	if !prefs.AutoScanEnabled {
		s.disable()
		s.logger.Info().Msg("Auto-scan disabled")
		return
	}

	s.mu.Lock()
	token := s.enablement
	s.mu.Unlock()

	s.PerformAutoScan(ctx)
	s.ensureWatch(token)
}

// State returns the current scheduler state
func (s *ScanScheduler) State() State {
	if s.scanning.Load() {
		return StateScanning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return StateScanPending
	}
	return StateIdle
}

// Watching reports whether a document watch is installed
func (s *ScanScheduler) Watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watch != nil
}

// Close releases the watch and the timer. Later triggers are ignored; a scan
// already running finishes on its own.
func (s *ScanScheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.disable()
}

func (s *ScanScheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ensureWatch installs the document watch unless one exists or auto-scan was
// disabled after token was taken. Watch is called without holding s.mu since
// a live page answers it over the browser connection and its callback takes
// s.mu.
func (s *ScanScheduler) ensureWatch(token uint64) {
	if !s.watchWanted(token) {
		return
	}

	w, err := s.doc.Watch(s.TriggerScan)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to watch document, rescans disabled")
		return
	}

	s.mu.Lock()
	if !s.watchWantedLocked(token) {
		s.mu.Unlock()
		if err := w.Release(); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to release document watch")
		}
		return
	}
	s.watch = w
	s.mu.Unlock()
	s.logger.Debug().Msg("Document watch installed")
}

func (s *ScanScheduler) watchWanted(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchWantedLocked(token)
}

func (s *ScanScheduler) watchWantedLocked(token uint64) bool {
	return !s.closed && s.watch == nil && token == s.enablement
}

func (s *ScanScheduler) disable() {
	s.mu.Lock()
	s.enablement++
	w := s.watch
	s.watch = nil
	s.stopTimerLocked()
	s.mu.Unlock()

	if w != nil {
		if err := w.Release(); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to release document watch")
		}
	}
}

// stopTimerLocked cancels the pending rescan; a callback already running sees
// a newer generation and does nothing
func (s *ScanScheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *ScanScheduler) readPreferences(ctx context.Context) models.Preferences {
	prefs, err := s.prefs.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read preferences, using defaults")
		return models.DefaultPreferences()
	}
	return prefs
}

func (s *ScanScheduler) report(ctx context.Context, links []models.DetectedLink) {
	if s.reporter == nil {
		return
	}
	if err := s.reporter.ReportDetectedLinks(ctx, links); err != nil {
		s.metrics.Report(metrics.OutcomeError)
		s.logger.Debug().Err(err).Int("links", len(links)).Msg("Failed to report detected links")
		return
	}
	s.metrics.Report(metrics.OutcomeSuccess)
}
