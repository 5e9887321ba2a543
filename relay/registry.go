package relay

import (
	"fmt"
	"sort"
	"sync"
)

// Registry owns the set of live sessions, keyed by identity. It is the
// only shared mutable structure in the core; all access goes through
// the lock so multiple connection goroutines observe consistent
// snapshots.
//
// A session is present in the registry if and only if its transport is
// open and not yet torn down. The registry never touches transports.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	nextID   uint64
}

// NewRegistry creates an empty registry. Identities are minted from a
// monotonic counter starting at 1.
func NewRegistry() *Registry {
	return &Registry{
		sessions: map[uint64]*Session{},
	}
}

// Register mints a fresh identity, assigns it to the session and inserts
// it. The counter makes collisions impossible by construction; hitting
// one anyway is a programming error, not a runtime condition.
func (r *Registry) Register(s *Session) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	if _, exists := r.sessions[id]; exists {
		panic(fmt.Sprintf("relay: identity collision for %d", id))
	}
	s.setID(id)
	r.sessions[id] = s
	return id
}

// Unregister removes the session under id. Idempotent: removing an
// absent identity is a no-op.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions right now.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Get returns the session under id, if present.
func (r *Registry) Get(id uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SnapshotOthers returns every live session except the one matching id,
// as a consistent point-in-time view ordered by ascending identity. No
// half-added or half-removed session can appear.
func (r *Registry) SnapshotOthers(id uint64) []*Session {
	r.mu.RLock()
	others := make([]*Session, 0, len(r.sessions))
	for sid, s := range r.sessions {
		if sid == id {
			continue
		}
		others = append(others, s)
	}
	r.mu.RUnlock()

	sort.Slice(others, func(i, j int) bool {
		return others[i].ID() < others[j].ID()
	})
	return others
}

// Each applies fn to every live session while holding a read lock.
func (r *Registry) Each(fn func(id uint64, s *Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, s := range r.sessions {
		fn(id, s)
	}
}
