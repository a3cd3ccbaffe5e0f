package services

import (
	"sync"
	"time"

	"pointjournaliere/internal/pkg/metrics"
)

// SessionRegistry holds one SessionController per browser session
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	factory  func() *SessionController
	now      func() time.Time
	metrics  *metrics.Metrics
}

type registryEntry struct {
	controller *SessionController
	lastSeen   time.Time
}

// NewSessionRegistry creates an empty registry; factory builds new sessions
func NewSessionRegistry(factory func() *SessionController, m *metrics.Metrics) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*registryEntry),
		factory:  factory,
		now:      time.Now,
		metrics:  m,
	}
}

// GetOrCreate returns the session for id, creating it when unknown.
// Every lookup refreshes the session's last-seen time.
func (r *SessionRegistry) GetOrCreate(id string) (controller *SessionController, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		entry = &registryEntry{controller: r.factory()}
		r.sessions[id] = entry
		r.metrics.SetActiveSessions(len(r.sessions))
	}
	entry.lastSeen = r.now()
	return entry.controller, !ok
}

// Get returns the session for id without creating it
func (r *SessionRegistry) Get(id string) (*SessionController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.controller, true
}

// Remove forgets a session
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	r.metrics.SetActiveSessions(len(r.sessions))
}

// Len returns the number of sessions held
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions not seen for longer than idle and returns how many were dropped
func (r *SessionRegistry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	r.metrics.SetActiveSessions(len(r.sessions))
	r.metrics.AddExpiredSessions(removed)
	return removed
}

// Wait blocks until every session finished its background revocations
func (r *SessionRegistry) Wait() {
	r.mu.Lock()
	controllers := make([]*SessionController, 0, len(r.sessions))
	for _, entry := range r.sessions {
		controllers = append(controllers, entry.controller)
	}
	r.mu.Unlock()

	for _, c := range controllers {
		c.Wait()
	}
}
