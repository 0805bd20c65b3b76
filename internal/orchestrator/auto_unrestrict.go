package orchestrator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/rs/zerolog"
)

// Unrestricter exchanges a hoster link for a direct download (UNRESTRICT_LINK)
type Unrestricter interface {
	UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error)
}

// Stats summarizes the session so far
type Stats struct {
	Processed int `json:"processed"`
	Cached    int `json:"cached"`
	Failed    int `json:"failed"`
}

// AutoUnrestrictOrchestrator sends each hoster link through the unrestrict
// service at most once per session. Calls are strictly sequential and one
// failing link never stops the others.
type AutoUnrestrictOrchestrator struct {
	client  Unrestricter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// run serializes Process calls
	run sync.Mutex

	mu        sync.RWMutex
	processed map[string]struct{}
	cache     map[string]json.RawMessage
	failed    int
}

// NewAutoUnrestrictOrchestrator creates an orchestrator with empty session state
func NewAutoUnrestrictOrchestrator(client Unrestricter, m *metrics.Metrics, logger zerolog.Logger) *AutoUnrestrictOrchestrator {
	return &AutoUnrestrictOrchestrator{
		client:    client,
		metrics:   m,
		logger:    logger.With().Str("component", "AutoUnrestrict").Logger(),
		processed: make(map[string]struct{}),
		cache:     make(map[string]json.RawMessage),
	}
}

// Process unrestricts the not yet processed hoster links in order and attaches
// results to links in place. It reports whether any link gained a result.
func (o *AutoUnrestrictOrchestrator) Process(ctx context.Context, links []models.DetectedLink) bool {
	o.run.Lock()
	defer o.run.Unlock()

	updated := false
	for i := range links {
		if !links[i].IsHoster() {
			continue
		}
		if ctx.Err() != nil {
			o.logger.Debug().Err(ctx.Err()).Msg("Stopping auto-unrestrict, context done")
			break
		}
		if !o.claim(links[i].URL) {
			continue
		}

		result, err := o.client.UnrestrictLink(ctx, links[i].URL)
		if err != nil {
			o.recordFailure()
			o.metrics.UnrestrictCall(metrics.OutcomeError)
			o.logger.Warn().Err(err).Str("url", links[i].URL).Msg("Failed to unrestrict link")
			continue
		}
		o.metrics.UnrestrictCall(metrics.OutcomeSuccess)

		if len(result) == 0 {
			o.logger.Debug().Str("url", links[i].URL).Msg("Unrestrict returned no result")
			continue
		}

		o.store(links[i].URL, result)
		links[i].UnrestrictedLink = result
		updated = true
		o.logger.Info().Str("url", links[i].URL).Str("host", links[i].Host).Msg("Link unrestricted")
	}

	if updated {
		stats := o.Stats()
		o.logger.Debug().
			Int("processed", stats.Processed).
			Int("cached", stats.Cached).
			Int("failed", stats.Failed).
			Msg("Auto-unrestrict pass finished")
	}
	return updated
}

// claim marks url processed and reports whether this caller owns it
func (o *AutoUnrestrictOrchestrator) claim(url string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, done := o.processed[url]; done {
		return false
	}
	o.processed[url] = struct{}{}
	return true
}

func (o *AutoUnrestrictOrchestrator) store(url string, result json.RawMessage) {
	o.mu.Lock()
	o.cache[url] = result
	o.mu.Unlock()
}

func (o *AutoUnrestrictOrchestrator) recordFailure() {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

// Unrestricted returns the cached result for url
func (o *AutoUnrestrictOrchestrator) Unrestricted(url string) (json.RawMessage, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	result, ok := o.cache[url]
	return result, ok
}

// Processed reports whether url was already sent this session
func (o *AutoUnrestrictOrchestrator) Processed(url string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.processed[url]
	return ok
}

// Stats returns the processed, cached and failed counts for the session
func (o *AutoUnrestrictOrchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Stats{
		Processed: len(o.processed),
		Cached:    len(o.cache),
		Failed:    o.failed,
	}
}
