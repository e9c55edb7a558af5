package echoapi

import (
	"net/http"
	"sync"

	"github.com/trezcool/academia/core/guard"
)

// responseNavigator records the navigation issued while serving a page, to be written as the HTTP response.
// Only the first navigation of a request is kept.
type responseNavigator struct {
	mu     sync.Mutex
	method string
	path   string
}

var _ guard.Navigator = (*responseNavigator)(nil)

func (n *responseNavigator) Replace(path string) { n.set("replace", path) }
func (n *responseNavigator) Push(path string)    { n.set("push", path) }

func (n *responseNavigator) set(method, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.method == "" {
		n.method, n.path = method, path
	}
}

// target returns the response status & location of the recorded navigation:
// a replace becomes a 303 See Other, a push a 302 Found.
func (n *responseNavigator) target() (int, string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch n.method {
	case "replace":
		return http.StatusSeeOther, n.path, true
	case "push":
		return http.StatusFound, n.path, true
	default:
		return 0, "", false
	}
}

// eventNavigator forwards navigations to an event stream. Only the first pending navigation is kept.
type eventNavigator struct {
	events chan string
}

var _ guard.Navigator = (*eventNavigator)(nil)

func newEventNavigator() *eventNavigator {
	return &eventNavigator{events: make(chan string, 1)}
}

func (n *eventNavigator) Replace(path string) { n.send(path) }
func (n *eventNavigator) Push(path string)    { n.send(path) }

func (n *eventNavigator) send(path string) {
	select {
	case n.events <- path:
	default:
	}
}
