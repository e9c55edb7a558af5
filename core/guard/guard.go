// Package guard decides, from the session state of a visitor, whether a page renders its content,
// shows a loading placeholder, or redirects elsewhere.
//
// AuthGuard protects private pages, GuestGuard protects public-only pages (login, register),
// and Redirector implements the landing pages that bounce visitors to one of two destinations.
// Guards are mounted on a session.Store and re-run their rule on every state change until unmounted;
// no navigation is ever issued after Unmount returns.
package guard

const (
	DefaultLoginPath = "/auth/login"
	DefaultHomePath  = "/dashboard"
)

// Navigator performs redirects. Calls are fire-and-forget and happen while the guard holds its lock:
// implementations must not call back into the guard.
type Navigator interface {
	Replace(path string)
	Push(path string)
}

// View is what the guarded page renders.
type View int

const (
	ViewLoading     View = iota // decision pending: render a loading indicator
	ViewChildren                // render the guarded content
	ViewRedirecting             // a redirect was issued: render a transient placeholder
	ViewNothing                 // a redirect was issued: render nothing
	ViewForbidden               // authenticated but lacking the required role
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewChildren:
		return "children"
	case ViewRedirecting:
		return "redirecting"
	case ViewNothing:
		return "nothing"
	case ViewForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one guard evaluation.
type Decision struct {
	View     View
	Redirect string // destination of the redirect issued by this evaluation, if any
}

// Observer is notified of guard evaluations and redirects.
type Observer interface {
	GuardDecided(guard, phase string)
	Redirected(guard, path string)
}

type options struct {
	observer Observer
	onDecide func(Decision)
	path     string
	roles    []string
}

type Option func(*options)

func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// OnDecision registers fn to receive every decision of the guard, the mount one included.
// Like a Navigator, fn is called with the guard lock held and must not call back into the guard.
func OnDecision(fn func(Decision)) Option {
	return func(opts *options) { opts.onDecide = fn }
}

// WithPath overrides the redirect destination: the login page of an AuthGuard, the home page of a GuestGuard.
func WithPath(path string) Option {
	return func(opts *options) { opts.path = path }
}

// RequireRoles restricts an AuthGuard to identities having a role with one of the given prefixes.
func RequireRoles(prefixes ...string) Option {
	return func(opts *options) { opts.roles = prefixes }
}

func newOptions(defaultPath string, opts []Option) options {
	o := options{path: defaultPath}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) decided(guard, phase string, d Decision) {
	if o.onDecide != nil {
		o.onDecide(d)
	}
	if o.observer != nil {
		o.observer.GuardDecided(guard, phase)
	}
}

func (o options) redirected(guard, path string) {
	if o.observer != nil {
		o.observer.Redirected(guard, path)
	}
}
