// Package reporter holds the sinks that receive detected links.
package reporter

import (
	"context"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/rs/zerolog"
)

// Reporter receives every batch of detected links
type Reporter interface {
	Report(ctx context.Context, links []models.DetectedLink) error
}

// LogReporter writes reports to the structured log
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a log sink
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger.With().Str("component", "LogReporter").Logger()}
}

func (r *LogReporter) Report(ctx context.Context, links []models.DetectedLink) error {
	hosters, magnets := models.CountByType(links)
	r.logger.Info().
		Int("hosters", hosters).
		Int("magnets", magnets).
		Msg("Detected links")

	for _, l := range links {
		r.logger.Debug().
			Str("url", l.URL).
			Str("host", l.Host).
			Str("type", string(l.Type)).
			Bool("unrestricted", l.HasUnrestricted()).
			Msg("Detected link")
	}
	return nil
}

// Multi fans a report out to several sinks. Every sink is tried; failures are
// combined.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, links []models.DetectedLink) error {
	var ec common.ErrorCollector
	for _, r := range m {
		ec.Add(r.Report(ctx, links))
	}
	return ec.Error()
}
