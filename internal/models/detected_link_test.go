package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectedLink_JSONFieldNames(t *testing.T) {
	link := DetectedLink{
		URL:              "https://host-a.example/file/1",
		Host:             "host-a.example",
		Type:             LinkTypeHoster,
		UnrestrictedLink: json.RawMessage(`{"download":"https://cdn.example/1"}`),
	}

	data, err := json.Marshal(link)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"url": "https://host-a.example/file/1",
		"host": "host-a.example",
		"type": "hoster",
		"unrestrictedLink": {"download": "https://cdn.example/1"}
	}`, string(data))
}

func TestDetectedLink_OmitsMissingUnrestricted(t *testing.T) {
	data, err := json.Marshal(DetectedLink{URL: "magnet:?xt=abc", Host: MagnetHost, Type: LinkTypeMagnet})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "unrestrictedLink")
}

func TestCountByType(t *testing.T) {
	hosters, magnets := CountByType([]DetectedLink{
		{Type: LinkTypeHoster},
		{Type: LinkTypeMagnet},
		{Type: LinkTypeHoster},
	})
	assert.Equal(t, 2, hosters)
	assert.Equal(t, 1, magnets)
}

func TestScanResponse(t *testing.T) {
	ok := NewScanSuccess(nil)
	assert.True(t, ok.Success)
	assert.NotNil(t, ok.Links)

	failed := NewScanFailure(errors.New("document unavailable"))
	assert.False(t, failed.Success)
	assert.Equal(t, "document unavailable", failed.Error)
	assert.Equal(t, "scan failed", NewScanFailure(nil).Error)
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.True(t, p.AutoScanEnabled)
	assert.True(t, p.AutoUnrestrict)
}
