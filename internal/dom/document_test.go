package dom

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Snapshot(t *testing.T) {
	base, _ := url.Parse("https://page.example/")
	doc, err := NewStaticFromReader(strings.NewReader(`<a href="/x">x</a>`), base)
	require.NoError(t, err)

	snap, gotBase, err := doc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, base, gotBase)
	assert.Equal(t, 1, snap.Find("a").Length())

	w, err := doc.Watch(func() { t.Fatal("static documents never change") })
	require.NoError(t, err)
	assert.NoError(t, w.Release())
}

func TestStatic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewStatic([]byte("<p></p>"), nil).Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMutable_AppendNotifiesWatchers(t *testing.T) {
	doc, err := NewMutable(`<html><body><div id="list"></div></body></html>`, nil)
	require.NoError(t, err)

	var notified int
	w, err := doc.Watch(func() { notified++ })
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Watchers())

	require.NoError(t, doc.Append("#list", `<a href="https://h.example/1">1</a>`))
	require.NoError(t, doc.Append("#list", `<a href="https://h.example/2">2</a>`))
	assert.Equal(t, 2, notified)

	snap, _, err := doc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Find("#list a").Length())

	require.NoError(t, w.Release())
	require.NoError(t, w.Release())
	assert.Equal(t, 0, doc.Watchers())

	require.NoError(t, doc.Append("body", `<p>more</p>`))
	assert.Equal(t, 2, notified)
}

func TestMutable_AppendUnknownSelector(t *testing.T) {
	doc, err := NewMutable(`<p></p>`, nil)
	require.NoError(t, err)

	err = doc.Append("#missing", "<b>x</b>")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
