package session

import "sync"

// Registry keeps one live Store per browser session id, shared by the long-lived subscribers
// of that session (eg. event streams), so that a logout performed by any request is observed by all of them.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	store *Store
	refs  int
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Acquire returns the Store of session sid, creating it in the Loading state when needed (created == true;
// the caller is then expected to hydrate it). Every Acquire must be paired with a call to release.
func (r *Registry) Acquire(sid string) (store *Store, created bool, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sid]
	if !ok {
		entry = &registryEntry{store: NewStore()}
		r.entries[sid] = entry
	}
	entry.refs++

	var once sync.Once
	release = func() {
		once.Do(func() { r.release(sid, entry) })
	}
	return entry.store, !ok, release
}

func (r *Registry) release(sid string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.refs--
	if entry.refs <= 0 && r.entries[sid] == entry {
		delete(r.entries, sid)
	}
}

// Lookup returns the live Store of session sid, if any subscriber holds it.
func (r *Registry) Lookup(sid string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sid]; ok {
		return entry.store, true
	}
	return nil, false
}

// ClearSession logs out the live Store of session sid; it is a no-op when nobody holds it.
func (r *Registry) ClearSession(sid string) {
	if store, ok := r.Lookup(sid); ok {
		store.ClearSession()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
