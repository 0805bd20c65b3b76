package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/aleister1102/linkscout/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeLinkPage = `<html><body>
	<a href="https://host-a.example/file/1">first</a>
	<p>grab it: https://host-a.example/file/2.</p>
	<a href="magnet:?xt=abc">magnet</a>
</body></html>`

type fakeBackground struct {
	mu           sync.Mutex
	patterns     []string
	patternsErr  error
	patternCalls int
	reports      [][]models.DetectedLink
	unrestricted []string
}

func (f *fakeBackground) GetHostsRegex(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patternCalls++
	return f.patterns, f.patternsErr
}

func (f *fakeBackground) ReportDetectedLinks(ctx context.Context, links []models.DetectedLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, append([]models.DetectedLink(nil), links...))
	return nil
}

func (f *fakeBackground) UnrestrictLink(ctx context.Context, link string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unrestricted = append(f.unrestricted, link)
	return json.RawMessage(`{"download":"https://dl.example/x"}`), nil
}

func (f *fakeBackground) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeBackground) lastReport() []models.DetectedLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return nil
	}
	return f.reports[len(f.reports)-1]
}

func (f *fakeBackground) unrestrictCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unrestricted...)
}

func newTestEngine(t *testing.T, doc dom.Document, bg *fakeBackground, prefs preferences.Store, clock clockwork.Clock) *Engine {
	t.Helper()
	e := New(context.Background(), doc, bg, prefs, Options{
		Debounce: time.Second,
		Clock:    clock,
		Metrics:  metrics.New(nil),
	}, zerolog.Nop())
	t.Cleanup(e.Close)
	return e
}

func TestScanPageLinks_ThreeLinkExample(t *testing.T) {
	bg := &fakeBackground{patterns: []string{`/host-a\.example/i`}}
	base, _ := url.Parse("https://page.example/")
	doc := dom.NewStatic([]byte(threeLinkPage), base)

	e := newTestEngine(t, doc, bg, preferences.NewMemory(models.DefaultPreferences()), clockwork.NewFakeClock())
	resp := e.ScanPageLinks(context.Background())

	require.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, []models.DetectedLink{
		{URL: "https://host-a.example/file/1", Host: "host-a.example", Type: models.LinkTypeHoster},
		{URL: "magnet:?xt=abc", Host: models.MagnetHost, Type: models.LinkTypeMagnet},
		{URL: "https://host-a.example/file/2", Host: "host-a.example", Type: models.LinkTypeHoster},
	}, resp.Links)
	assert.Empty(t, bg.unrestrictCalls(), "an on-demand scan never unrestricts")
}

func TestScanPageLinks_PatternFailureDegradesToMagnets(t *testing.T) {
	bg := &fakeBackground{patternsErr: errors.New("background unavailable")}
	doc := dom.NewStatic([]byte(threeLinkPage), nil)

	e := newTestEngine(t, doc, bg, preferences.NewMemory(models.DefaultPreferences()), clockwork.NewFakeClock())
	resp := e.ScanPageLinks(context.Background())

	require.True(t, resp.Success)
	require.Len(t, resp.Links, 1)
	assert.Equal(t, models.LinkTypeMagnet, resp.Links[0].Type)
}

func TestScanPageLinks_SnapshotFailure(t *testing.T) {
	bg := &fakeBackground{}
	doc := dom.NewStatic([]byte(threeLinkPage), nil)
	e := newTestEngine(t, doc, bg, preferences.NewMemory(models.DefaultPreferences()), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := e.ScanPageLinks(ctx)

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestStart_ScansUnrestrictsAndRescansOnInsertion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bg := &fakeBackground{patterns: []string{`/host-a\.example/i`}}
	doc, err := dom.NewMutable(threeLinkPage, nil)
	require.NoError(t, err)

	e := newTestEngine(t, doc, bg, preferences.NewMemory(models.DefaultPreferences()), clock)
	e.Start()

	// initial scan report, then the report carrying unrestrict results
	require.Equal(t, 2, bg.reportCount())
	assert.ElementsMatch(t, []string{"https://host-a.example/file/1", "https://host-a.example/file/2"}, bg.unrestrictCalls())
	for _, l := range bg.lastReport() {
		assert.Equal(t, l.IsHoster(), l.HasUnrestricted(), l.URL)
	}
	assert.Equal(t, 1, doc.Watchers())

	require.NoError(t, doc.Append("body", `<a href="https://host-a.example/file/3">third</a>`))
	assert.Equal(t, scheduler.StateScanPending, e.State())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return bg.reportCount() == 4 }, time.Second, 5*time.Millisecond)

	// only the new link reaches the unrestrict service
	calls := bg.unrestrictCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "https://host-a.example/file/3", calls[2])
	assert.Equal(t, 3, e.Stats().Processed)
}

func TestStart_PreferenceChanges(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bg := &fakeBackground{patterns: []string{`/host-a\.example/i`}}
	doc, err := dom.NewMutable(threeLinkPage, nil)
	require.NoError(t, err)
	prefs := preferences.NewMemory(models.Preferences{AutoScanEnabled: true, AutoUnrestrict: false})

	e := newTestEngine(t, doc, bg, prefs, clock)
	e.Start()
	require.Equal(t, 1, bg.reportCount())
	assert.Empty(t, bg.unrestrictCalls())

	prefs.Set(models.Preferences{AutoScanEnabled: false, AutoUnrestrict: false})
	assert.Equal(t, 0, doc.Watchers())
	require.NoError(t, doc.Append("body", `<a href="https://host-a.example/file/3">third</a>`))
	assert.Equal(t, scheduler.StateIdle, e.State())

	prefs.Set(models.Preferences{AutoScanEnabled: true, AutoUnrestrict: true})
	assert.Equal(t, 1, doc.Watchers())
	assert.Equal(t, 3, bg.reportCount())
	assert.Len(t, bg.unrestrictCalls(), 3)
}

func TestClose(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bg := &fakeBackground{patterns: []string{`/host-a\.example/i`}}
	doc, err := dom.NewMutable(threeLinkPage, nil)
	require.NoError(t, err)
	prefs := preferences.NewMemory(models.DefaultPreferences())

	e := newTestEngine(t, doc, bg, prefs, clock)
	e.Start()
	reports := bg.reportCount()

	require.NoError(t, doc.Append("body", `<a href="https://host-a.example/file/3">third</a>`))
	e.Close()
	e.Close()

	assert.Equal(t, 0, doc.Watchers())
	assert.Equal(t, 0, prefs.Subscribers())
	clock.Advance(time.Second)
	assert.Never(t, func() bool { return bg.reportCount() != reports }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSessionID(t *testing.T) {
	bg := &fakeBackground{}
	doc := dom.NewStatic([]byte("<p></p>"), nil)
	prefs := preferences.NewMemory(models.DefaultPreferences())

	a := newTestEngine(t, doc, bg, prefs, clockwork.NewFakeClock())
	b := newTestEngine(t, doc, bg, prefs, clockwork.NewFakeClock())
	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())

	fixed := New(context.Background(), doc, bg, prefs, Options{SessionID: "s-1"}, zerolog.Nop())
	defer fixed.Close()
	assert.Equal(t, "s-1", fixed.SessionID())
}
