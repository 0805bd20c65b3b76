// Package debrid talks to a Real-Debrid compatible REST API.
package debrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/config"
	"github.com/aleister1102/linkscout/internal/httpclient"
	"github.com/rs/zerolog"
)

const (
	hostsRegexPath     = "/hosts/regex"
	unrestrictLinkPath = "/unrestrict/link"
)

// APIError is the error envelope returned by the API
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       int    `json:"error_code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("debrid api error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// Client is a typed client for the hosts and unrestrict endpoints
type Client struct {
	http    *httpclient.HTTPClient
	submit  *httpclient.HTTPClient
	baseURL string
	token   string
	logger  zerolog.Logger
}

// NewClient builds a client from the background configuration
func NewClient(cfg config.BackgroundConfig, logger zerolog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, common.NewValidationError("base_url", cfg.BaseURL, "must be an absolute URL")
	}

	reads, err := buildHTTPClient(cfg, httpclient.DefaultRetryHandlerConfig(), logger)
	if err != nil {
		return nil, err
	}

	// a gateway or transport error may hide a submission the service already
	// accepted, so unrestrict calls are only repeated when rate limited
	submitRetries := httpclient.DefaultRetryHandlerConfig()
	submitRetries.RetryStatusCodes = []int{http.StatusTooManyRequests}
	submitRetries.SkipNetworkErrors = true
	submits, err := buildHTTPClient(cfg, submitRetries, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:    reads,
		submit:  submits,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		logger:  logger.With().Str("component", "DebridClient").Logger(),
	}, nil
}

// HostsRegex returns the raw hoster patterns, each in "/source/" form
func (c *Client) HostsRegex(ctx context.Context) ([]string, error) {
	resp, err := c.http.Get(ctx, c.baseURL+hostsRegexPath, c.headers())
	if err != nil {
		return nil, common.WrapError(err, "failed to fetch hoster patterns")
	}
	if err := checkResponse(resp, hostsRegexPath); err != nil {
		return nil, err
	}

	var out []string
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, common.WrapError(err, "failed to decode hoster patterns")
	}
	c.logger.Debug().Int("patterns", len(out)).Msg("Fetched hoster patterns")
	return out, nil
}

// UnrestrictLink exchanges a hoster link for a direct download. The response
// object is returned as-is.
func (c *Client) UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error) {
	if strings.TrimSpace(link) == "" {
		return nil, common.NewValidationError("link", link, "link is required")
	}
	if c.token == "" {
		return nil, common.WrapError(common.ErrInvalidInput, "unrestrict requires an API token")
	}

	resp, err := c.submit.PostForm(ctx, c.baseURL+unrestrictLinkPath, url.Values{"link": {link}}, c.headers())
	if err != nil {
		return nil, common.WrapError(err, "failed to unrestrict link")
	}
	if err := checkResponse(resp, unrestrictLinkPath); err != nil {
		return nil, err
	}

	if !json.Valid(resp.Body) {
		return nil, common.NewError("unrestrict returned invalid JSON for %s", link)
	}
	return json.RawMessage(resp.Body), nil
}

func buildHTTPClient(cfg config.BackgroundConfig, retries httpclient.RetryHandlerConfig, logger zerolog.Logger) (*httpclient.HTTPClient, error) {
	retries.MaxRetries = cfg.MaxRetries

	builder := httpclient.NewHTTPClientBuilder(logger).
		WithUserAgent(cfg.UserAgent).
		WithRetries(retries)
	if cfg.TimeoutSecs > 0 {
		builder = builder.WithTimeout(cfg.Timeout())
	}

	hc, err := builder.Build()
	if err != nil {
		return nil, common.WrapError(err, "failed to build debrid HTTP client")
	}
	return hc, nil
}

func (c *Client) headers() map[string]string {
	if c.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.token}
}

func checkResponse(resp *httpclient.HTTPResponse, path string) error {
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(resp.Body, apiErr); err == nil && apiErr.Message != "" {
		return apiErr
	}
	return common.NewHTTPError(resp.StatusCode, string(resp.Body), path)
}
