package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/guard"
	"github.com/trezcool/academia/core/session"
)

var keepAliveInterval = 15 * time.Second // mockable

func registerSessionEvents(e *echo.Echo, srv *server) {
	e.GET("/session/events", srv.sessionEvents)
}

// sessionEvents streams the session of the visitor as server-sent events: a `state` event with the view of
// the protected page, another one on every change of it, then a `redirect` event as soon as the session is
// no longer authorized (eg. after a logout from another tab). The stream shares the live store of the session with every other stream of it.
func (s *server) sessionEvents(ctx echo.Context) error {
	var store *session.Store
	if sid := s.sessionID(ctx); sid != "" {
		var (
			created bool
			release func()
		)
		store, created, release = s.Registry.Acquire(sid)
		defer release()
		if created {
			s.hydrate(ctx, store, sid)
		}
	} else {
		store = session.NewStore(session.WithState(session.Unauthenticated()))
	}

	s.Metrics.LiveSessions.Inc()
	defer s.Metrics.LiveSessions.Dec()

	nav := newEventNavigator()
	views := make(chan guard.View, 1)
	g := guard.NewAuthGuard(store, nav,
		guard.WithObserver(s.Metrics),
		guard.WithPath(s.Conf.Session.LoginPath),
		guard.OnDecision(func(d guard.Decision) { sendLatest(views, d.View) }),
	)

	w := ctx.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	d := g.Mount()
	defer g.Unmount()
	last := d.View
	writeEvent(w, "state", last.String())

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case v := <-views:
			// a redirect is announced by its own event
			if v != last && v != guard.ViewRedirecting {
				last = v
				writeEvent(w, "state", v.String())
			}
		case path := <-nav.events:
			writeEvent(w, "redirect", path)
			return nil
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			w.Flush()
		}
	}
}

// sendLatest leaves v as the only pending view of ch. Decisions of a guard are serialized, so there is a
// single sender at a time.
func sendLatest(ch chan guard.View, v guard.View) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

func writeEvent(w *echo.Response, event, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	w.Flush()
}
