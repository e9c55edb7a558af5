package session

import (
	"errors"
	"sync"
)

// ErrEmptyToken is returned by Store.SetSession when called without a token.
// The store is reset to Unauthenticated in that case.
var ErrEmptyToken = errors.New("session token is empty")

// Listener is notified with the new State on every state change.
type Listener func(State)

type Option func(*Store)

// WithState sets the initial state of the Store (Loading by default).
func WithState(st State) Option {
	return func(s *Store) { s.state = st }
}

// Store holds the session state of one visitor.
//
// Mutations are serialized, and listeners are called synchronously, in mutation order,
// once per actual change. Listeners may read the Store but must not mutate it synchronously.
type Store struct {
	writeMu sync.Mutex // serializes mutations & their notifications
	mu      sync.Mutex // guards the fields below

	state     State
	listeners []subscription
	nextID    uint64
}

type subscription struct {
	id uint64
	fn Listener
}

func NewStore(opts ...Option) *Store {
	s := &Store{state: Loading()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetSession marks the session authenticated with the given token & identity and clears loading.
func (s *Store) SetSession(token string, id Identity) error {
	if token == "" {
		s.set(Unauthenticated())
		return ErrEmptyToken
	}
	s.set(Authenticated(token, id))
	return nil
}

// ClearSession logs out: the token is dropped and the session becomes Unauthenticated.
func (s *Store) ClearSession() {
	s.set(Unauthenticated())
}

// Resolve replaces the current state.
func (s *Store) Resolve(st State) {
	s.set(st)
}

// ResolveLoading replaces the state only while the store is still Loading, and reports whether it did.
// A session resolved in the meantime (eg. logged out) is left untouched.
func (s *Store) ResolveLoading(next State) bool {
	return s.setIf(State.IsLoading, next)
}

// Subscribe registers l and returns a func that unregisters it. The returned func is idempotent.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.listeners {
		if sub.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) set(next State) {
	s.setIf(nil, next)
}

// setIf applies next when cond holds for the current state (always when cond is nil).
func (s *Store) setIf(cond func(State) bool, next State) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if cond != nil && !cond(s.state) {
		s.mu.Unlock()
		return false
	}
	if s.state.Equal(next) {
		s.mu.Unlock()
		return true
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		listeners = append(listeners, sub.fn)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return true
}
