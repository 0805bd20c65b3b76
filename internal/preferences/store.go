// Package preferences provides the user switches that gate auto-scan and
// auto-unrestrict, together with change notification.
package preferences

import (
	"context"
	"sync"

	"github.com/aleister1102/linkscout/internal/models"
)

// Store reads preferences and announces changes
type Store interface {
	// Get returns the current preferences. On error the returned value is the
	// default record and is still usable.
	Get(ctx context.Context) (models.Preferences, error)
	Subscribe(fn func(models.Preferences)) Subscription
}

// Subscription is a live change listener
type Subscription interface {
	Release()
}

// hub fans change notifications out to subscribers
type hub struct {
	mu     sync.Mutex
	subs   map[int]func(models.Preferences)
	nextID int
}

func (h *hub) subscribe(fn func(models.Preferences)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(models.Preferences))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return &subscription{hub: h, id: id}
}

func (h *hub) publish(p models.Preferences) {
	h.mu.Lock()
	fns := make([]func(models.Preferences), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type subscription struct {
	hub  *hub
	id   int
	once sync.Once
}

func (s *subscription) Release() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

// Memory keeps preferences in process, for embedding and tests
type Memory struct {
	mu    sync.RWMutex
	prefs models.Preferences
	hub   hub
}

// NewMemory creates a store holding p
func NewMemory(p models.Preferences) *Memory {
	return &Memory{prefs: p}
}

func (m *Memory) Get(ctx context.Context) (models.Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs, nil
}

// Set replaces the preferences and notifies subscribers when they changed
func (m *Memory) Set(p models.Preferences) {
	m.mu.Lock()
	changed := m.prefs != p
	m.prefs = p
	m.mu.Unlock()

	if changed {
		m.hub.publish(p)
	}
}

func (m *Memory) Subscribe(fn func(models.Preferences)) Subscription {
	return m.hub.subscribe(fn)
}

// Subscribers returns the number of live subscriptions
func (m *Memory) Subscribers() int {
	return m.hub.count()
}
