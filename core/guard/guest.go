package guard

import (
	"sync"

	"github.com/trezcool/academia/core/session"
)

type GuestPhase int

const (
	GuestChecking GuestPhase = iota
	GuestShowContent
	GuestRedirectAway
)

func (p GuestPhase) String() string {
	switch p {
	case GuestChecking:
		return "checking"
	case GuestShowContent:
		return "show_guest_content"
	case GuestRedirectAway:
		return "redirect_away"
	default:
		return "unknown"
	}
}

// DecideGuest applies the public-only page rule to st.
func DecideGuest(st session.State) GuestPhase {
	switch {
	case st.IsLoading():
		return GuestChecking
	case st.Token() != "" && st.IsAuthenticated():
		return GuestRedirectAway
	default:
		return GuestShowContent
	}
}

// GuestGuard protects a public-only page: authenticated visitors are sent to the home page.
type GuestGuard struct {
	store *session.Store
	nav   Navigator
	opts  options

	mu          sync.Mutex
	mounted     bool
	phase       GuestPhase
	decision    Decision
	unsubscribe func()
}

func NewGuestGuard(store *session.Store, nav Navigator, opts ...Option) *GuestGuard {
	return &GuestGuard{
		store:    store,
		nav:      nav,
		opts:     newOptions(DefaultHomePath, opts),
		decision: Decision{View: ViewLoading},
	}
}

func (g *GuestGuard) Mount() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mounted {
		return g.decision
	}
	g.mounted = true
	g.unsubscribe = g.store.Subscribe(g.onChange)
	return g.evaluate()
}

func (g *GuestGuard) Unmount() {
	g.mu.Lock()
	g.mounted = false
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *GuestGuard) Phase() GuestPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *GuestGuard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

func (g *GuestGuard) onChange(session.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mounted {
		g.evaluate()
	}
}

func (g *GuestGuard) evaluate() Decision {
	g.phase = GuestChecking
	phase := DecideGuest(g.store.State())

	d := Decision{View: ViewLoading}
	switch phase {
	case GuestShowContent:
		d.View = ViewChildren
	case GuestRedirectAway:
		// render nothing: guest content must not flash to an authenticated visitor
		d = Decision{View: ViewNothing, Redirect: g.opts.path}
		g.nav.Replace(d.Redirect)
		g.opts.redirected("guest", d.Redirect)
	}

	g.phase = phase
	g.decision = d
	g.opts.decided("guest", phase.String(), d)
	return d
}
