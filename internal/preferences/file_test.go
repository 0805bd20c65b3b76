package preferences

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/linkscout/internal/config"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(t *testing.T, content string, hotReload bool) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	f, err := NewFile(config.PreferencesConfig{Path: path, HotReload: hotReload, ReloadDelayMs: 10}, nil, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func TestFile_Get(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    models.Preferences
		wantErr bool
	}{
		{name: "missing file", want: models.DefaultPreferences()},
		{name: "empty record", content: "preferences: {}\n", want: models.DefaultPreferences()},
		{
			name:    "partial record",
			content: "preferences:\n  auto_unrestrict: false\n",
			want:    models.Preferences{AutoScanEnabled: true, AutoUnrestrict: false},
		},
		{
			name:    "full record",
			content: "preferences:\n  auto_scan_enabled: false\n  auto_unrestrict: false\n",
			want:    models.Preferences{},
		},
		{name: "malformed", content: "preferences: [", want: models.DefaultPreferences(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFile(t, tt.content, false)
			got, err := f.Get(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFile_SaveRoundTripAndNotify(t *testing.T) {
	f := newFile(t, "", false)

	var got []models.Preferences
	f.Subscribe(func(p models.Preferences) { got = append(got, p) })

	off := models.Preferences{AutoScanEnabled: false, AutoUnrestrict: true}
	require.NoError(t, f.Save(off))
	require.NoError(t, f.Save(off))

	current, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, off, current)
	assert.Equal(t, []models.Preferences{off}, got)
}

func TestFile_HotReload(t *testing.T) {
	f := newFile(t, "preferences:\n  auto_scan_enabled: true\n", true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.Start(ctx))
	defer f.Close()

	var mu sync.Mutex
	var got []models.Preferences
	f.Subscribe(func(p models.Preferences) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})

	require.NoError(t, os.WriteFile(f.Path(), []byte("preferences:\n  auto_scan_enabled: false\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, models.Preferences{AutoScanEnabled: false, AutoUnrestrict: true}, got[0])
	mu.Unlock()

	require.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

func TestFile_StartWithoutHotReload(t *testing.T) {
	f := newFile(t, "", false)
	assert.NoError(t, f.Start(context.Background()))
	assert.NoError(t, f.Close())
}
