package guard

import (
	"sync"

	"github.com/trezcool/academia/core/session"
)

type AuthPhase int

const (
	AuthChecking AuthPhase = iota
	AuthAuthorized
	AuthUnauthorized
	AuthForbidden
)

func (p AuthPhase) String() string {
	switch p {
	case AuthChecking:
		return "checking"
	case AuthAuthorized:
		return "authorized"
	case AuthUnauthorized:
		return "unauthorized"
	case AuthForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// DecideAuth applies the protected-page rule to st.
// No decision is made while loading; a token is required on top of the authenticated status.
func DecideAuth(st session.State, roles ...string) AuthPhase {
	switch {
	case st.IsLoading():
		return AuthChecking
	case st.Token() != "" && st.IsAuthenticated():
		if len(roles) > 0 && !st.Identity().HasRolePrefix(roles...) {
			return AuthForbidden
		}
		return AuthAuthorized
	default:
		return AuthUnauthorized
	}
}

// AuthGuard protects a private page: unauthenticated visitors are redirected to the login page.
type AuthGuard struct {
	store *session.Store
	nav   Navigator
	opts  options

	mu          sync.Mutex
	mounted     bool
	phase       AuthPhase
	decision    Decision
	unsubscribe func()
}

func NewAuthGuard(store *session.Store, nav Navigator, opts ...Option) *AuthGuard {
	return &AuthGuard{
		store:    store,
		nav:      nav,
		opts:     newOptions(DefaultLoginPath, opts),
		decision: Decision{View: ViewLoading},
	}
}

// Mount subscribes the guard to its store and returns the decision for the current state.
func (g *AuthGuard) Mount() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mounted {
		return g.decision
	}
	g.mounted = true
	g.unsubscribe = g.store.Subscribe(g.onChange)
	return g.evaluate()
}

// Unmount stops the guard. No redirect is issued once Unmount has returned.
func (g *AuthGuard) Unmount() {
	g.mu.Lock()
	g.mounted = false
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *AuthGuard) Phase() AuthPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *AuthGuard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

func (g *AuthGuard) onChange(session.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mounted {
		g.evaluate()
	}
}

// evaluate re-runs the rule on the latest store state. g.mu must be held.
func (g *AuthGuard) evaluate() Decision {
	g.phase = AuthChecking
	phase := DecideAuth(g.store.State(), g.opts.roles...)

	d := Decision{View: ViewLoading}
	switch phase {
	case AuthAuthorized:
		d.View = ViewChildren
	case AuthForbidden:
		d.View = ViewForbidden
	case AuthUnauthorized:
		// the placeholder is part of the same decision: protected content is never rendered first
		d = Decision{View: ViewRedirecting, Redirect: g.opts.path}
		g.nav.Replace(d.Redirect)
		g.opts.redirected("auth", d.Redirect)
	}

	g.phase = phase
	g.decision = d
	g.opts.decided("auth", phase.String(), d)
	return d
}
