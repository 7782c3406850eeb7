// Package presence tracks which users currently hold a live connection.
//
// The registry is the only shared-mutable structure in the process that is
// touched from multiple connection lifecycles at once, so all access goes
// through a single mutex. Every operation is O(1) and none performs I/O
// under the lock.
package presence

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
)

// Handle is a live connection that accepts best-effort pushes. Push methods
// must not block: they report false when the event could not be handed off
// (e.g. the connection's buffer is full) and the caller treats that as a
// normal store-only fallback, never as a request failure.
type Handle interface {
	PushMessage(msg *domain.Message) bool
	PushRead(msg *domain.Message) bool
	Close(reason string)
}

// Registry is a bidirectional map between a user id and their single active
// handle. A second registration for the same user displaces the first
// (last write wins); the displaced handle is returned so the owner can
// close it.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[uuid.UUID]Handle
	byHandle map[Handle]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[uuid.UUID]Handle),
		byHandle: make(map[Handle]uuid.UUID),
	}
}

// Register records h as the active handle for userID, replacing any prior
// one. Returns the displaced handle, or nil if the user had none.
func (r *Registry) Register(userID uuid.UUID, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byUser[userID]
	if ok {
		delete(r.byHandle, prev)
	}
	r.byUser[userID] = h
	r.byHandle[h] = userID
	if ok {
		return prev
	}
	return nil
}

// Lookup returns the active handle for userID. Absence is not an error:
// it is the normal signal to fall back to store-only delivery.
func (r *Registry) Lookup(userID uuid.UUID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// Unregister removes userID's mapping. Removing an absent entry is a no-op.
func (r *Registry) Unregister(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.byUser[userID]; ok {
		delete(r.byUser, userID)
		delete(r.byHandle, h)
	}
}

// UnregisterHandle removes h's mapping and reports which user it belonged
// to. The removal is identity-checked: a handle that has already been
// displaced by a newer connection for the same user cannot evict its
// replacement when it finally disconnects.
func (r *Registry) UnregisterHandle(h Handle) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byHandle[h]
	if !ok {
		return uuid.Nil, false
	}
	delete(r.byHandle, h)
	if cur, ok := r.byUser[userID]; ok && cur == h {
		delete(r.byUser, userID)
	}
	return userID, true
}

// Count returns the number of users currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// OnlineIDs returns a snapshot of all registered user ids.
func (r *Registry) OnlineIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}
