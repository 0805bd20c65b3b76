package preferences

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/config"
	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Record is the on-disk form. Absent fields take their default.
type Record struct {
	AutoScanEnabled *bool `yaml:"auto_scan_enabled,omitempty"`
	AutoUnrestrict  *bool `yaml:"auto_unrestrict,omitempty"`
}

type fileDocument struct {
	Preferences *Record `yaml:"preferences,omitempty"`
}

// Resolve fills absent fields from the defaults
func (r *Record) Resolve() models.Preferences {
	p := models.DefaultPreferences()
	if r == nil {
		return p
	}
	if r.AutoScanEnabled != nil {
		p.AutoScanEnabled = *r.AutoScanEnabled
	}
	if r.AutoUnrestrict != nil {
		p.AutoUnrestrict = *r.AutoUnrestrict
	}
	return p
}

// File stores preferences in a YAML file and, once started, watches it for edits
type File struct {
	path        string
	hotReload   bool
	reloadDelay time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu       sync.Mutex
	last     models.Preferences
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}

	hub hub
}

// NewFile opens the preference file described by cfg. A missing file is not an
// error; it reads as the defaults.
func NewFile(cfg config.PreferencesConfig, m *metrics.Metrics, logger zerolog.Logger) (*File, error) {
	path := cfg.Path
	if path == "" {
		path = config.DefaultPreferencesPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, common.WrapError(err, "failed to resolve preferences path")
	}

	f := &File{
		path:        abs,
		hotReload:   cfg.HotReload,
		reloadDelay: cfg.ReloadDelay(),
		metrics:     m,
		logger:      logger.With().Str("component", "Preferences").Logger(),
	}

	p, err := f.read()
	if err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("Failed to read preferences, using defaults")
	}
	f.last = p
	return f, nil
}

// Path returns the absolute file path
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(ctx context.Context) (models.Preferences, error) {
	return f.read()
}

func (f *File) Subscribe(fn func(models.Preferences)) Subscription {
	return f.hub.subscribe(fn)
}

// Save writes p to disk and notifies subscribers if it differs from the last
// known value.
func (f *File) Save(p models.Preferences) error {
	doc := fileDocument{Preferences: &Record{
		AutoScanEnabled: &p.AutoScanEnabled,
		AutoUnrestrict:  &p.AutoUnrestrict,
	}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return common.WrapError(err, "failed to marshal preferences")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return common.WrapError(err, "failed to create preferences directory")
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return common.WrapError(err, "failed to write preferences")
	}
	f.publishIfChanged(p)
	return nil
}

// Start begins watching the file when hot reload is enabled. It is a no-op
// otherwise.
func (f *File) Start(ctx context.Context) error {
	if !f.hotReload {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return common.WrapError(err, "failed to create file watcher")
	}

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return common.WrapErrorf(err, "failed to watch preferences directory '%s'", dir)
	}

	f.watcher = watcher
	f.stopChan = make(chan struct{})
	f.done = make(chan struct{})
	f.logger.Info().Str("directory", dir).Msg("Watching preferences for changes")

	go f.hotReloadLoop(ctx, watcher, f.stopChan, f.done)
	return nil
}

// Close stops the watcher
func (f *File) Close() error {
	f.mu.Lock()
	watcher, stop, done := f.watcher, f.stopChan, f.done
	f.watcher = nil
	f.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(stop)
	<-done
	return watcher.Close()
}

func (f *File) hotReloadLoop(ctx context.Context, watcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	reloadTimer := time.NewTimer(0)
	if !reloadTimer.Stop() {
		<-reloadTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			f.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Preferences change detected")
			reloadTimer.Reset(f.reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error().Err(err).Msg("File watcher error")

		case <-reloadTimer.C:
			p, err := f.read()
			if err != nil {
				f.logger.Warn().Err(err).Msg("Failed to reload preferences, keeping previous values")
				continue
			}
			f.metrics.PreferenceReloaded()
			f.publishIfChanged(p)
		}
	}
}

func (f *File) publishIfChanged(p models.Preferences) {
	f.mu.Lock()
	changed := f.last != p
	f.last = p
	f.mu.Unlock()

	if changed {
		f.logger.Info().
			Bool("auto_scan_enabled", p.AutoScanEnabled).
			Bool("auto_unrestrict", p.AutoUnrestrict).
			Msg("Preferences changed")
		f.hub.publish(p)
	}
}

func (f *File) read() (models.Preferences, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.DefaultPreferences(), common.WrapError(err, "failed to read preferences")
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.DefaultPreferences(), common.WrapError(err, "failed to parse preferences")
	}
	return doc.Preferences.Resolve(), nil
}
