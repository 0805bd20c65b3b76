package httpclient

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientBuilder(t *testing.T) {
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithTimeout(15 * time.Second).
		WithUserAgent("test-agent").
		WithFollowRedirects(false).
		WithRetries(DefaultRetryHandlerConfig()).
		Build()

	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, client.config.Timeout)
	assert.Equal(t, "test-agent", client.config.UserAgent)
	assert.False(t, client.config.FollowRedirects)
	assert.NotNil(t, client.retryHandler)
}

func TestHTTPClientBuilder_DefaultValues(t *testing.T) {
	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	defaults := DefaultHTTPClientConfig()
	assert.Equal(t, defaults.Timeout, client.config.Timeout)
	assert.Equal(t, defaults.FollowRedirects, client.config.FollowRedirects)
	assert.True(t, client.config.EnableHTTP2)
	assert.Nil(t, client.retryHandler)
}

func TestHTTPClientBuilder_BadProxy(t *testing.T) {
	_, err := NewHTTPClientBuilder(zerolog.Nop()).WithProxy("://bad").Build()
	assert.Error(t, err)
}
