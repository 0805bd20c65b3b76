// Package background is the engine's typed view of its host collaborator: one
// method per message kind.
package background

import (
	"context"
	"encoding/json"

	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/reporter"
	"github.com/rs/zerolog"
)

// Message kinds understood by the collaborator
const (
	MessageGetHostsRegex       = "GET_HOSTS_REGEX"
	MessageScanPageLinks       = "SCAN_PAGE_LINKS"
	MessageReportDetectedLinks = "REPORT_DETECTED_LINKS"
	MessageUnrestrictLink      = "UNRESTRICT_LINK"
)

// Client is the request/response surface the engine depends on
type Client interface {
	// GetHostsRegex answers GET_HOSTS_REGEX with raw "/pattern/" strings
	GetHostsRegex(ctx context.Context) ([]string, error)
	// ReportDetectedLinks delivers REPORT_DETECTED_LINKS
	ReportDetectedLinks(ctx context.Context, links []models.DetectedLink) error
	// UnrestrictLink answers UNRESTRICT_LINK with an opaque result
	UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error)
}

// DebridAPI is the remote service behind patterns and unrestricting
type DebridAPI interface {
	HostsRegex(ctx context.Context) ([]string, error)
	UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error)
}

// Service is the production Client: debrid API calls plus local report sinks
type Service struct {
	api      DebridAPI
	reporter reporter.Reporter
	logger   zerolog.Logger
}

// NewService combines api and sink. A nil sink drops reports.
func NewService(api DebridAPI, sink reporter.Reporter, logger zerolog.Logger) *Service {
	return &Service{
		api:      api,
		reporter: sink,
		logger:   logger.With().Str("component", "Background").Logger(),
	}
}

func (s *Service) GetHostsRegex(ctx context.Context) ([]string, error) {
	s.logger.Debug().Str("message", MessageGetHostsRegex).Msg("Handling message")
	return s.api.HostsRegex(ctx)
}

func (s *Service) ReportDetectedLinks(ctx context.Context, links []models.DetectedLink) error {
	s.logger.Debug().Str("message", MessageReportDetectedLinks).Int("links", len(links)).Msg("Handling message")
	if s.reporter == nil {
		return nil
	}
	return s.reporter.Report(ctx, links)
}

func (s *Service) UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error) {
	s.logger.Debug().Str("message", MessageUnrestrictLink).Str("url", link).Msg("Handling message")
	return s.api.UnrestrictLink(ctx, link)
}
