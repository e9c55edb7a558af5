package guard

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/trezcool/academia/core/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	student = session.Identity{ID: "1", Username: "t", Roles: []string{"student:"}}
	admin   = session.Identity{ID: "2", Username: "a", Roles: []string{"admin:owner"}}
)

type observation struct {
	guard, what string
}

type testObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *testObserver) GuardDecided(guard, phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{guard, phase})
}

func (o *testObserver) Redirected(guard, path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{guard, path})
}

// fakeClock replaces afterFunc with timers driven by Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func useFakeClock(t *testing.T) *fakeClock {
	c := &fakeClock{}
	afterFunc = func(d time.Duration, f func()) stopper {
		c.mu.Lock()
		defer c.mu.Unlock()
		tm := &fakeTimer{clock: c, at: c.now + d, f: f}
		c.timers = append(c.timers, tm)
		return tm
	}
	t.Cleanup(func() {
		afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
	})
	return c
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired && tm.at <= c.now {
			tm.fired = true
			due = append(due, tm)
		}
	}
	c.mu.Unlock()

	for _, tm := range due {
		tm.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, tm := range c.timers {
		if !tm.stopped && !tm.fired {
			n++
		}
	}
	return n
}
