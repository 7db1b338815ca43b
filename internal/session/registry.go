// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

package session

import (
	"sync"
)

// # Live Connection Registry

// Registry is the set of sessions held by this gateway instance. It exists
// for fan-out: the notification bus walks it to deliver entity changes to
// every locally connected, authorized client.
//
// Add/Remove are tied to connection lifecycle by the supervisor. The
// registry never mutates session state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty live-connection registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a newly accepted session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove deregisters a closed session.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s.ID)
}

// Len returns the number of live sessions on this instance.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ForEach invokes fn for every live session. The snapshot is taken under the
// read lock so fn may block (e.g. on a store query) without holding it.
func (r *Registry) ForEach(fn func(s *Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}
