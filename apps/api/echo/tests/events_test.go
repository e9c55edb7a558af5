package tests

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/user"
)

type sseEvent struct {
	name string
	data string
}

// readEvents parses the server-sent events of body, skipping comments.
func readEvents(body *bufio.Reader) <-chan sseEvent {
	events := make(chan sseEvent)
	go func() {
		defer close(events)
		var ev sseEvent
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "" && ev.name != "":
				events <- ev
				ev = sseEvent{}
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return sseEvent{}
	}
}

func openEvents(t *testing.T, ts *httptest.Server, cookies ...*http.Cookie) (*http.Response, <-chan sseEvent) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/session/events", nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	return res, readEvents(bufio.NewReader(res.Body))
}

func Test_sessionEvents_anonymous(t *testing.T) {
	app := setup(t)
	ts := httptest.NewServer(app)
	defer ts.Close()

	_, events := openEvents(t, ts)
	assert.Equal(t, sseEvent{name: "state", data: "redirecting"}, nextEvent(t, events))
	assert.Equal(t, sseEvent{name: "redirect", data: "/auth/login"}, nextEvent(t, events))
}

func Test_sessionEvents_logoutElsewhere(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "student", user.RoleStudent)
	cookie := app.logIn(t, student)
	ts := httptest.NewServer(app)
	defer ts.Close()

	// two tabs share the live session
	_, tab1 := openEvents(t, ts, cookie)
	_, tab2 := openEvents(t, ts, cookie)
	assert.Equal(t, sseEvent{name: "state", data: "children"}, nextEvent(t, tab1))
	assert.Equal(t, sseEvent{name: "state", data: "children"}, nextEvent(t, tab2))

	_, ok := app.registry.Lookup(cookie.Value)
	require.True(t, ok, "live session registered")

	// a third tab logs out
	rec := app.do(newRequest(http.MethodPost, "/api/auth/logout", "", nil, cookie))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, sseEvent{name: "redirect", data: "/auth/login"}, nextEvent(t, tab1))
	assert.Equal(t, sseEvent{name: "redirect", data: "/auth/login"}, nextEvent(t, tab2))

	assert.Eventually(t, func() bool { return app.registry.Len() == 0 }, time.Second, 10*time.Millisecond,
		"streams release the live session")
}

func Test_sessionEvents_hydratedElsewhere(t *testing.T) {
	app := setup(t)
	student := app.createUser(t, "student", user.RoleStudent)
	cookie := app.logIn(t, student)
	ts := httptest.NewServer(app)
	defer ts.Close()

	// another stream holds the live session and has not restored it yet
	store, created, release := app.registry.Acquire(cookie.Value)
	defer release()
	require.True(t, created)

	_, events := openEvents(t, ts, cookie)
	assert.Equal(t, sseEvent{name: "state", data: "loading"}, nextEvent(t, events))

	require.NoError(t, store.SetSession("abc", student.Identity()))
	assert.Equal(t, sseEvent{name: "state", data: "children"}, nextEvent(t, events))

	app.registry.ClearSession(cookie.Value)
	assert.Equal(t, sseEvent{name: "redirect", data: "/auth/login"}, nextEvent(t, events))
}
