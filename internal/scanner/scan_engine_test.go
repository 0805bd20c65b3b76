package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/extractor"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/patterns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPatterns struct {
	set   patterns.Set
	calls int
}

func (s *staticPatterns) Patterns(context.Context) patterns.Set {
	s.calls++
	return s.set
}

type mapLookup map[string]json.RawMessage

func (m mapLookup) Unrestricted(u string) (json.RawMessage, bool) {
	v, ok := m[u]
	return v, ok
}

type brokenDoc struct{}

func (brokenDoc) Snapshot(context.Context) (*goquery.Document, *url.URL, error) {
	return nil, nil, errors.New("tab closed")
}

func (brokenDoc) Watch(func()) (dom.Watch, error) { return nil, errors.New("tab closed") }

const page = `<html><body>
	<a href="https://host-a.example/file/1">first</a>
	<p>grab it: https://host-a.example/file/2.</p>
	<a href="magnet:?xt=abc">magnet</a>
</body></html>`

func newEngine(t *testing.T, lookup UnrestrictedLookup) (*ScanEngine, *staticPatterns) {
	t.Helper()
	set, errs := patterns.ParseAll([]string{`/host-a\.example/i`})
	require.Empty(t, errs)
	provider := &staticPatterns{set: set}
	return NewScanEngine(provider, extractor.New(zerolog.Nop()), lookup, nil, zerolog.Nop()), provider
}

func TestScan_EndToEnd(t *testing.T) {
	engine, provider := newEngine(t, nil)

	links, err := engine.Scan(context.Background(), dom.NewStatic([]byte(page), nil))
	require.NoError(t, err)

	assert.ElementsMatch(t, []models.DetectedLink{
		{URL: "https://host-a.example/file/1", Host: "host-a.example", Type: models.LinkTypeHoster},
		{URL: "https://host-a.example/file/2", Host: "host-a.example", Type: models.LinkTypeHoster},
		{URL: "magnet:?xt=abc", Host: "magnet", Type: models.LinkTypeMagnet},
	}, links)
	assert.Equal(t, 1, provider.calls)
}

func TestScan_EnrichesFromCache(t *testing.T) {
	engine, _ := newEngine(t, mapLookup{
		"https://host-a.example/file/2": json.RawMessage(`{"download":"https://dl.example/2"}`),
	})

	links, err := engine.Scan(context.Background(), dom.NewStatic([]byte(page), nil))
	require.NoError(t, err)

	for _, l := range links {
		if l.URL == "https://host-a.example/file/2" {
			assert.JSONEq(t, `{"download":"https://dl.example/2"}`, string(l.UnrestrictedLink))
		} else {
			assert.False(t, l.HasUnrestricted())
		}
	}
}

func TestScan_SnapshotFailure(t *testing.T) {
	engine, _ := newEngine(t, nil)

	links, err := engine.Scan(context.Background(), brokenDoc{})
	assert.Error(t, err)
	assert.Nil(t, links)
}
