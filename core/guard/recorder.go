package guard

import "sync"

// Recorder is a Navigator that records the navigations it receives.
type Recorder struct {
	mu    sync.Mutex
	calls []Navigation
}

type Navigation struct {
	Method string // "replace" or "push"
	Path   string
}

var _ Navigator = (*Recorder)(nil)

func (r *Recorder) Replace(path string) { r.record("replace", path) }
func (r *Recorder) Push(path string)    { r.record("push", path) }

func (r *Recorder) record(method, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Navigation{Method: method, Path: path})
}

// Navigations returns a copy of the recorded navigations.
func (r *Recorder) Navigations() []Navigation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Navigation(nil), r.calls...)
}

// Last returns the most recent navigation.
func (r *Recorder) Last() (Navigation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Navigation{}, false
	}
	return r.calls[len(r.calls)-1], true
}
