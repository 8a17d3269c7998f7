package core

import "sync"

// InFlight tracks workspace ids with an outstanding provider call. It
// guarantees the at-most-one-attempt-per-workspace rule across the
// provisioner's fan-out, and lets the janitor skip workspaces that are
// mid-provision.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[string]struct{})}
}

// TryAcquire claims the id, returning false if it is already held.
func (f *InFlight) TryAcquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.ids[id]; held {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *InFlight) Release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}

// Held reports whether the id is currently claimed.
func (f *InFlight) Held(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, held := f.ids[id]
	return held
}
