package server

import (
	"sync"

	"github.com/cyberinferno/go-chat/session"
)

// registry is the server's session registry, mapping session IDs to live
// sessions. Only the server mutates it: add on accept, remove on session
// teardown. The mutex serializes inserts and removes under concurrent
// accepts and disconnects.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// newRegistry returns an empty registry.
func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session.Session)}
}

// add registers a session under its ID.
func (r *registry) add(id string, sess *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sess
}

// remove deletes the session with the given ID. Removing an unknown ID is a no-op.
func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// get returns the session for the given ID, if present.
func (r *registry) get(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// count returns the number of registered sessions.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot returns the registered sessions at this instant. The returned
// slice is the caller's; later registry mutations do not affect it.
func (r *registry) snapshot() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*session.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}

	return out
}
