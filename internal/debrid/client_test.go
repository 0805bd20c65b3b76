package debrid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewDefaultBackgroundConfig()
	cfg.BaseURL = server.URL + "/rest/1.0/"
	cfg.APIToken = token
	cfg.MaxRetries = 0

	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestHostsRegex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/1.0/hosts/regex", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["/(http|https):\\/\\/(\\w+\\.)?1fichier\\.com\\/\\?.+/", "/rapidgator\\.net/"]`))
	}, "")

	out, err := c.HostsRegex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`/(http|https):\/\/(\w+\.)?1fichier\.com\/\?.+/`, `/rapidgator\.net/`}, out)
}

func TestHostsRegex_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}, "")

	_, err := c.HostsRegex(context.Background())
	assert.Error(t, err)
}

func TestUnrestrictLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/1.0/unrestrict/link", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://rapidgator.net/file/1", r.PostForm.Get("link"))
		_, _ = w.Write([]byte(`{"id":"X1","filename":"a.bin","download":"https://dl.example/a.bin"}`))
	}, "secret")

	out, err := c.UnrestrictLink(context.Background(), "https://rapidgator.net/file/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"X1","filename":"a.bin","download":"https://dl.example/a.bin"}`, string(out))
}

func TestUnrestrictLink_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"hoster_unsupported","error_code":16}`))
	}, "secret")

	_, err := c.UnrestrictLink(context.Background(), "https://nowhere.example/f")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 16, apiErr.Code)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "hoster_unsupported", apiErr.Message)
}

func TestUnrestrictLink_PlainHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	}, "secret")

	_, err := c.UnrestrictLink(context.Background(), "https://h.example/f")
	var httpErr *common.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestUnrestrictLink_RequiresTokenAndLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, "")

	_, err := c.UnrestrictLink(context.Background(), "https://h.example/f")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = c.UnrestrictLink(context.Background(), " ")
	var vErr *common.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	cfg := config.NewDefaultBackgroundConfig()
	cfg.BaseURL = "not a url"
	_, err := NewClient(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func newRetryingClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewDefaultBackgroundConfig()
	cfg.BaseURL = server.URL
	cfg.APIToken = "secret"
	cfg.MaxRetries = 2

	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestUnrestrictLink_GatewayErrorIsNotResubmitted(t *testing.T) {
	var submits atomic.Int32
	c := newRetryingClient(t, func(w http.ResponseWriter, r *http.Request) {
		submits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.UnrestrictLink(context.Background(), "https://rapidgator.net/file/1")
	require.Error(t, err)
	assert.Equal(t, int32(1), submits.Load())
}

func TestUnrestrictLink_RateLimitIsRetried(t *testing.T) {
	var submits atomic.Int32
	c := newRetryingClient(t, func(w http.ResponseWriter, r *http.Request) {
		if submits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"download":"https://dl.example/a.bin"}`))
	})

	out, err := c.UnrestrictLink(context.Background(), "https://rapidgator.net/file/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"download":"https://dl.example/a.bin"}`, string(out))
	assert.Equal(t, int32(2), submits.Load())
}

func TestHostsRegex_GatewayErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := newRetryingClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`["/a\\.com/"]`))
	})

	out, err := c.HostsRegex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`/a\.com/`}, out)
	assert.Equal(t, int32(2), calls.Load())
}
