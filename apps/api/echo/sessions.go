package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

const contextStoreKey = "sessionStore"

func (s *server) sessionID(ctx echo.Context) string {
	cookie, err := ctx.Cookie(s.Conf.Session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *server) setSessionCookie(ctx echo.Context, sid string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.Conf.Session.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Conf.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *server) clearSessionCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.Conf.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Conf.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// logIn authenticates the visitor, then persists their session and sets the session cookie.
func (s *server) logIn(ctx echo.Context, uname, pwd string) (user.User, string, error) {
	reqCtx := ctx.Request().Context()
	usr, err := authenticate(reqCtx, uname, pwd, s.UserSvc)
	if err != nil {
		return user.User{}, "", err
	}

	claims := s.auth.userClaims(usr)
	token, err := s.auth.generateToken(claims)
	if err != nil {
		return user.User{}, "", errors.Wrap(err, "generating token")
	}

	expiresAt := time.Unix(claims.ExpiresAt, 0).UTC()
	sid, err := s.Sessions.Create(reqCtx, session.Record{Token: token, Identity: usr.Identity(), ExpiresAt: expiresAt})
	if err != nil {
		return user.User{}, "", errors.Wrap(err, "creating session")
	}
	s.setSessionCookie(ctx, sid, expiresAt)
	return usr, token, nil
}

// logOut ends the visitor session everywhere: storage, live stores & cookie. It is idempotent.
func (s *server) logOut(ctx echo.Context) error {
	sid := s.sessionID(ctx)
	if sid != "" {
		if err := s.Sessions.Delete(ctx.Request().Context(), sid); err != nil {
			return errors.Wrap(err, "deleting session")
		}
		s.Registry.ClearSession(sid)
	}
	if store, ok := contextStore(ctx); ok {
		store.ClearSession()
	}
	s.clearSessionCookie(ctx)
	return nil
}

// hydrate resolves store from the session of sid. Failures leave the visitor unauthenticated.
func (s *server) hydrate(ctx echo.Context, store *session.Store, sid string) {
	if err := session.Hydrate(ctx.Request().Context(), store, s.Sessions.Persistence(sid)); err != nil {
		s.Metrics.HydrationFailures.Inc()
		s.Logger.Warn("session hydration failed", err)
	}
}

// hydrateStore returns the session store of the request, hydrated from the session cookie on first use.
func (s *server) hydrateStore(ctx echo.Context) *session.Store {
	if store, ok := contextStore(ctx); ok {
		return store
	}
	store := session.NewStore()
	ctx.Set(contextStoreKey, store)
	s.hydrate(ctx, store, s.sessionID(ctx))
	return store
}

func contextStore(ctx echo.Context) (*session.Store, bool) {
	store, ok := ctx.Get(contextStoreKey).(*session.Store)
	return store, ok
}
