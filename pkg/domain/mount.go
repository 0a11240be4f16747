package domain

import "sync"

// MountRegistry is the set of mount keys a connection has already initialized.
// Entries are never removed; the registry lives and dies with its connection.
type MountRegistry struct {
	mu   sync.RWMutex
	keys map[MountKey]struct{}
}

// NewMountRegistry returns an empty registry.
func NewMountRegistry() *MountRegistry {
	return &MountRegistry{keys: make(map[MountKey]struct{})}
}

// Has reports whether key was already initialized.
func (r *MountRegistry) Has(key MountKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[key]
	return ok
}

// Add marks key as initialized.
func (r *MountRegistry) Add(key MountKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key] = struct{}{}
}

// Len returns the number of mounted slots.
func (r *MountRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}
