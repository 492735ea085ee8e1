package hub

import (
	"sort"
	"sync"
)

// Registry is the presence directory: it maps a user identity to the client
// id of its live connection. At most one entry exists per identity; a second
// connection authenticating as the same identity replaces the first
// (last-connect-wins). The superseded connection stays open but is no longer
// addressable through the registry.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]string // userID -> clientID
	byClient map[string]string // clientID -> userID, for disconnect eviction
}

func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[string]string),
		byClient: make(map[string]string),
	}
}

// Register binds userID to clientID, replacing any previous binding for the
// same identity. It returns the superseded client id, if any.
func (r *Registry) Register(userID, clientID string) (superseded string, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.users[userID]; ok && old != clientID {
		delete(r.byClient, old)
		superseded, replaced = old, true
	}
	r.users[userID] = clientID
	r.byClient[clientID] = userID
	return superseded, replaced
}

// Lookup returns the live client id for an identity, if one is registered.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.users[userID]
	return id, ok
}

// Drop evicts the entry owned by clientID and returns the identity it was
// bound to. A client id that was already superseded owns no entry, so the
// call is a silent no-op.
func (r *Registry) Drop(clientID string) (userID string, dropped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byClient[clientID]
	if !ok {
		return "", false
	}
	delete(r.byClient, clientID)
	delete(r.users, userID)
	return userID, true
}

// Online returns the sorted set of identities currently registered.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.users))
	for uid := range r.users {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
