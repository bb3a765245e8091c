package wsapi

import (
	"sync"

	"github.com/txindexd/txindexd/internal/txmodel"
)

// Hub is the fan-out registry: it tracks every live Session and
// implements ingest.Publisher by checking each session's subscriptions
// against every published transaction. It has no import on the ingest
// package — Publisher is satisfied structurally.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register adds a session to the fan-out set. Callers must call
// Unregister when the session's Run loop returns.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.id] = s
}

// Unregister removes a session from the fan-out set.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.id)
}

// Publish checks tx against every live session's subscriptions and
// enqueues a matching Event on each one whose outbound rate limit
// allows it. Implements ingest.Publisher.
func (h *Hub) Publish(tx txmodel.Transaction) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sessions {
		for _, subID := range s.matches(tx) {
			s.deliver(subID, tx)
		}
	}
}

// Count reports the number of registered sessions, for tests and
// diagnostics.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
