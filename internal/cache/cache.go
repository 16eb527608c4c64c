// Package cache provides the in-process TTL caches of the server and a
// manager that sweeps them.
package cache

import (
	"sync"
	"time"

	applog "expensetracker/internal/log"
)

// Source is a cache the Manager can sweep and report on.
type Source interface {
	CleanExpired() int
	Stats() Stats
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	mu      sync.Mutex
	caches  map[string]Source
	logger  *applog.Logger
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		caches: make(map[string]Source),
		logger: logger.WithComponent(applog.ComponentCache),
	}
}

// Register adds c under name. A second registration under the same name
// replaces the first.
func (m *Manager) Register(name string, c Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// CleanAll sweeps every cache once and returns the removals per cache.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			removed[name] = n
		}
	}
	return removed
}

// Stats reports every registered cache.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Stats, len(m.caches))
	for name, c := range m.caches {
		out[name] = c.Stats()
	}
	return out
}

func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(interval, m.stop, m.done)
}

func (m *Manager) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for name, n := range m.CleanAll() {
				m.logger.Debug("Evicted expired cache entries", "cache", name, applog.FieldCount, n)
			}
		case <-stop:
			return
		}
	}
}

// Stop ends the sweep and waits for it. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
}
