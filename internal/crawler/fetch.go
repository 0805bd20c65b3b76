package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

// FetchOptions tunes a static fetch
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetch downloads rawURL once, without running scripts, and returns it as a
// static document based at the final (post-redirect) URL.
func Fetch(ctx context.Context, rawURL string, opts FetchOptions, logger zerolog.Logger) (*dom.Static, error) {
	logger = logger.With().Str("component", "Fetch").Str("url", rawURL).Logger()

	collectorOptions := []colly.CollectorOption{
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	}
	if opts.UserAgent != "" {
		collectorOptions = append(collectorOptions, colly.UserAgent(opts.UserAgent))
	}

	collector := colly.NewCollector(collectorOptions...)
	if opts.Timeout > 0 {
		collector.SetRequestTimeout(opts.Timeout)
	}

	var (
		body     []byte
		finalURL *url.URL
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL
		logger.Debug().Int("status_code", r.StatusCode).Int("bytes", len(r.Body)).Msg("Fetched document")
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s failed (status %d): %w", rawURL, status, err)
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", rawURL, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if finalURL == nil {
		return nil, fmt.Errorf("no response for %s", rawURL)
	}
	return dom.NewStatic(body, finalURL), nil
}
