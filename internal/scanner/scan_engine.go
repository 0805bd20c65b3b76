package scanner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/extractor"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/patterns"
	"github.com/rs/zerolog"
)

// PatternProvider yields the current hoster pattern set without failing
type PatternProvider interface {
	Patterns(ctx context.Context) patterns.Set
}

// UnrestrictedLookup returns a cached unrestrict result for a URL
type UnrestrictedLookup interface {
	Unrestricted(url string) (json.RawMessage, bool)
}

// ScanEngine performs one full pass over a document: current patterns, link
// extraction, then enrichment from the session's unrestrict cache.
type ScanEngine struct {
	patterns  PatternProvider
	extractor *extractor.LinkExtractor
	cache     UnrestrictedLookup
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewScanEngine wires a ScanEngine. cache and m may be nil.
func NewScanEngine(
	provider PatternProvider,
	ex *extractor.LinkExtractor,
	cache UnrestrictedLookup,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ScanEngine {
	return &ScanEngine{
		patterns:  provider,
		extractor: ex,
		cache:     cache,
		metrics:   m,
		logger:    logger.With().Str("component", "ScanEngine").Logger(),
	}
}

// Scan returns every magnet and hoster link in doc. Only a failure to read the
// document is an error; pattern trouble degrades to magnet-only results.
func (s *ScanEngine) Scan(ctx context.Context, doc dom.Document) ([]models.DetectedLink, error) {
	started := time.Now()

	set := s.patterns.Patterns(ctx)

	snapshot, base, err := doc.Snapshot(ctx)
	if err != nil {
		return nil, common.WrapError(err, "failed to snapshot document")
	}

	links := s.extractor.Extract(snapshot, base, set)

	enriched := 0
	if s.cache != nil {
		for i := range links {
			if cached, ok := s.cache.Unrestricted(links[i].URL); ok {
				links[i].UnrestrictedLink = cached
				enriched++
			}
		}
	}

	hosters, magnets := models.CountByType(links)
	s.metrics.ScanCompleted(time.Since(started), hosters, magnets)
	s.logger.Debug().
		Int("patterns", len(set)).
		Int("hosters", hosters).
		Int("magnets", magnets).
		Int("enriched", enriched).
		Dur("duration", time.Since(started)).
		Msg("Scan completed")

	return links, nil
}
