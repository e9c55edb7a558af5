package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNoSession is returned by a Persistence that holds no session for the visitor.
var ErrNoSession = errors.New("no persisted session")

// Record is what a Persistence stores for a session.
type Record struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Persistence is the persisted session storage read once to hydrate a Store.
// Implementations only return records whose token is still valid.
type Persistence interface {
	Load(ctx context.Context) (Record, error)
}

// PersistenceFunc adapts a func to the Persistence interface.
type PersistenceFunc func(ctx context.Context) (Record, error)

func (f PersistenceFunc) Load(ctx context.Context) (Record, error) { return f(ctx) }

// HydrationError reports persisted storage that could not be read, or held an invalid session.
type HydrationError struct {
	Err error
}

func (e *HydrationError) Error() string { return "hydrating session: " + e.Err.Error() }
func (e *HydrationError) Unwrap() error { return e.Err }
func (e *HydrationError) Cause() error  { return e.Err }

// Hydrate loads the persisted session into store. It resolves the store out of Loading:
// any failure leaves the session Unauthenticated.
// A missing session is not an error; anything else is returned as a *HydrationError.
// A store resolved while the read was in flight (eg. logged out) keeps its state.
func Hydrate(ctx context.Context, store *Store, p Persistence) error {
	rec, err := p.Load(ctx)
	if err != nil {
		store.ResolveLoading(Unauthenticated())
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return &HydrationError{Err: err}
	}
	if !rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(nowFunc()) {
		store.ResolveLoading(Unauthenticated())
		return &HydrationError{Err: errors.New("session expired")}
	}
	if rec.Token == "" {
		store.ResolveLoading(Unauthenticated())
		return &HydrationError{Err: ErrEmptyToken}
	}
	store.ResolveLoading(Authenticated(rec.Token, rec.Identity))
	return nil
}

var nowFunc = time.Now // mockable
