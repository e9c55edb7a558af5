package guard

import (
	"sync"
	"time"

	"github.com/trezcool/academia/core/session"
)

const DefaultRedirectDelay = 100 * time.Millisecond

type stopper interface {
	Stop() bool
}

var afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) } // mockable

type RedirectorConfig struct {
	Authenticated   string // destination of authenticated visitors
	Unauthenticated string // destination of everyone else
	Delay           time.Duration
	Name            string // reported to the observer; "redirector" if empty
	Observer        Observer
}

// Redirector implements a landing page that sends the visitor to one of two destinations once the session
// has finished loading. Navigation is debounced by Delay and cancelled if the Redirector is unmounted first.
type Redirector struct {
	store *session.Store
	nav   Navigator
	conf  RedirectorConfig

	mu          sync.Mutex
	mounted     bool
	fired       bool
	timer       stopper
	target      string
	done        chan struct{}
	unsubscribe func()
}

func NewRedirector(store *session.Store, nav Navigator, conf RedirectorConfig) *Redirector {
	if conf.Delay <= 0 {
		conf.Delay = DefaultRedirectDelay
	}
	if conf.Name == "" {
		conf.Name = "redirector"
	}
	return &Redirector{
		store: store,
		nav:   nav,
		conf:  conf,
		done:  make(chan struct{}),
	}
}

// Mount subscribes to the store and schedules the redirect if the session is already loaded.
// It always renders a loading placeholder.
func (r *Redirector) Mount() Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted || r.fired {
		return Decision{View: ViewLoading}
	}
	r.mounted = true
	r.unsubscribe = r.store.Subscribe(r.onChange)
	r.scheduleLocked()
	return Decision{View: ViewLoading}
}

// Unmount cancels the pending redirect, if any. No navigation happens once Unmount has returned.
func (r *Redirector) Unmount() {
	r.mu.Lock()
	r.mounted = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Done is closed once the redirect has been issued.
func (r *Redirector) Done() <-chan struct{} {
	return r.done
}

// Target returns the destination of the issued redirect ("" until Done is closed).
func (r *Redirector) Target() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *Redirector) onChange(session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted {
		r.scheduleLocked()
	}
}

func (r *Redirector) scheduleLocked() {
	if r.fired || r.timer != nil || r.store.State().IsLoading() {
		return
	}
	r.timer = afterFunc(r.conf.Delay, r.fire)
}

func (r *Redirector) fire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mounted || r.fired {
		return
	}
	r.fired = true
	r.timer = nil

	// the destination follows the state at fire time, not at schedule time
	st := r.store.State()
	r.target = r.conf.Unauthenticated
	if st.Token() != "" && st.IsAuthenticated() {
		r.target = r.conf.Authenticated
	}
	r.nav.Push(r.target)
	if r.conf.Observer != nil {
		r.conf.Observer.Redirected(r.conf.Name, r.target)
	}
	close(r.done)
}
