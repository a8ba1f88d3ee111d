package relay

import (
	"sort"
	"sync"

	"github.com/poornimasewak/nook/domain/user"
)

// presenceEntry records who is online and through which connection.
type presenceEntry struct {
	connID  string
	profile user.Profile
}

// Registry is the in-memory presence table, keyed by user id. One identity
// maps to at most one live connection: registering an identity that is
// already present displaces the previous connection.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*presenceEntry
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*presenceEntry)}
}

// Register marks the user online through connID. If the identity was already
// registered through a different connection, the displaced connection id is
// returned so the caller can close it.
func (r *Registry) Register(connID string, profile user.Profile) (displaced string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.users[profile.ID]; ok && prev.connID != connID {
		displaced = prev.connID
	}
	profile.IsOnline = true
	r.users[profile.ID] = &presenceEntry{connID: connID, profile: profile}
	return displaced
}

// Unregister removes the user's presence entry, but only if it is still owned
// by connID. A stale disconnect from a displaced connection must not remove
// the successor's entry. Reports whether the entry was removed.
func (r *Registry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[userID]
	if !ok || entry.connID != connID {
		return false
	}
	delete(r.users, userID)
	return true
}

// UpdateName changes the display name on the user's presence entry, if
// present.
func (r *Registry) UpdateName(userID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.users[userID]; ok {
		entry.profile.Name = name
	}
}

// Lookup returns the user's presence profile.
func (r *Registry) Lookup(userID string) (user.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	if !ok {
		return user.Profile{}, false
	}
	return entry.profile, true
}

// Snapshot returns all online profiles sorted by user id.
func (r *Registry) Snapshot() []user.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]user.Profile, 0, len(r.users))
	for _, entry := range r.users {
		profiles = append(profiles, entry.profile)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles
}

// Count returns the number of online identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
