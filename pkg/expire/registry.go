package expire

import (
	"sort"
	"time"
)

// KeyState is the expiration state of a key.
type KeyState uint8

const (
	// KeyUnwatched indicates the key is not registered.
	KeyUnwatched KeyState = iota

	// KeyScheduled indicates a timer is pending for the key.
	KeyScheduled

	// KeyExpired indicates the expired value was forced (or already present).
	KeyExpired

	// KeyStalled indicates a timer re-read failed; no timer is pending.
	KeyStalled
)

// String returns a human-readable state name.
func (s KeyState) String() string {
	switch s {
	case KeyUnwatched:
		return "UNWATCHED"
	case KeyScheduled:
		return "SCHEDULED"
	case KeyExpired:
		return "EXPIRED"
	case KeyStalled:
		return "STALLED"
	default:
		return "UNKNOWN"
	}
}

// WatchedKey is a registered key.
type WatchedKey struct {
	// ID of the watched value.
	ID string

	// Config is the key's expiration policy.
	Config MonitorConfig

	// State is the key's current expiration state.
	State KeyState

	// Deadline is the last computed deadline (zero before the first check).
	Deadline time.Time

	// RegisteredAt is when the key was registered.
	RegisteredAt time.Time
}

// Registry maps watched key IDs to their configuration.
// It is not safe for concurrent use; the engine guards it.
type Registry struct {
	keys map[string]*WatchedKey
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*WatchedKey)}
}

// Put inserts or replaces the entry for id.
func (r *Registry) Put(id string, cfg MonitorConfig, now time.Time) *WatchedKey {
	key := &WatchedKey{
		ID:           id,
		Config:       cfg,
		State:        KeyUnwatched,
		RegisteredAt: now,
	}
	r.keys[id] = key
	return key
}

// Remove deletes the entry for id and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.keys[id]; !ok {
		return false
	}
	delete(r.keys, id)
	return true
}

// Lookup returns the configuration for id.
func (r *Registry) Lookup(id string) (MonitorConfig, bool) {
	key, ok := r.keys[id]
	if !ok {
		return MonitorConfig{}, false
	}
	return key.Config, true
}

// get returns the live entry for id, or nil.
func (r *Registry) get(id string) *WatchedKey {
	return r.keys[id]
}

// IDs returns the registered IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	return len(r.keys)
}
