package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/session"
)

func TestDecideAuth(t *testing.T) {
	tests := []struct {
		name  string
		state session.State
		roles []string
		want  AuthPhase
	}{
		{name: "loading", state: session.Loading(), want: AuthChecking},
		{name: "unauthenticated", state: session.Unauthenticated(), want: AuthUnauthorized},
		{name: "authenticated", state: session.Authenticated("abc", student), want: AuthAuthorized},
		{name: "empty token", state: session.Authenticated("", student), want: AuthUnauthorized},
		{name: "missing role", state: session.Authenticated("abc", student), roles: []string{"admin:"}, want: AuthForbidden},
		{name: "has role", state: session.Authenticated("abc", admin), roles: []string{"admin:"}, want: AuthAuthorized},
		{name: "role on unauthenticated", state: session.Unauthenticated(), roles: []string{"admin:"}, want: AuthUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideAuth(tt.state, tt.roles...))
		})
	}
}

func TestAuthGuard_Mount(t *testing.T) {
	tests := []struct {
		name      string
		state     session.State
		opts      []Option
		wantPhase AuthPhase
		wantView  View
		wantNav   []Navigation
	}{
		{
			name:      "loading renders loading",
			state:     session.Loading(),
			wantPhase: AuthChecking,
			wantView:  ViewLoading,
		},
		{
			name:      "no token redirects to login",
			state:     session.Unauthenticated(),
			wantPhase: AuthUnauthorized,
			wantView:  ViewRedirecting,
			wantNav:   []Navigation{{Method: "replace", Path: DefaultLoginPath}},
		},
		{
			name:      "custom login path",
			state:     session.Unauthenticated(),
			opts:      []Option{WithPath("/admin/login")},
			wantPhase: AuthUnauthorized,
			wantView:  ViewRedirecting,
			wantNav:   []Navigation{{Method: "replace", Path: "/admin/login"}},
		},
		{
			name:      "authenticated renders children",
			state:     session.Authenticated("abc", student),
			wantPhase: AuthAuthorized,
			wantView:  ViewChildren,
		},
		{
			name:      "missing role is forbidden",
			state:     session.Authenticated("abc", student),
			opts:      []Option{RequireRoles("admin:")},
			wantPhase: AuthForbidden,
			wantView:  ViewForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := new(Recorder)
			g := NewAuthGuard(session.NewStore(session.WithState(tt.state)), nav, tt.opts...)
			defer g.Unmount()

			d := g.Mount()
			assert.Equal(t, tt.wantView, d.View)
			assert.Equal(t, tt.wantPhase, g.Phase())
			assert.Equal(t, tt.wantNav, nav.Navigations())
		})
	}
}

func TestAuthGuard_loadingToAuthenticated(t *testing.T) {
	store := session.NewStore()
	nav := new(Recorder)
	obs := new(testObserver)
	g := NewAuthGuard(store, nav, WithObserver(obs))
	defer g.Unmount()

	assert.Equal(t, ViewLoading, g.Mount().View)

	require.NoError(t, store.SetSession("abc", student))
	assert.Equal(t, AuthAuthorized, g.Phase())
	assert.Equal(t, ViewChildren, g.Decision().View)
	assert.Empty(t, nav.Navigations(), "no redirect may ever happen")
	assert.Equal(t, []observation{{"auth", "checking"}, {"auth", "authorized"}}, obs.seen)
}

func TestAuthGuard_logoutWhileMounted(t *testing.T) {
	store := session.NewStore(session.WithState(session.Authenticated("abc", student)))
	nav := new(Recorder)
	g := NewAuthGuard(store, nav)
	defer g.Unmount()

	assert.Equal(t, ViewChildren, g.Mount().View)

	store.ClearSession()
	assert.Equal(t, AuthUnauthorized, g.Phase())
	assert.Equal(t, Decision{View: ViewRedirecting, Redirect: DefaultLoginPath}, g.Decision())
	assert.Equal(t, []Navigation{{Method: "replace", Path: DefaultLoginPath}}, nav.Navigations())
}

func TestAuthGuard_noRedirectAfterUnmount(t *testing.T) {
	store := session.NewStore()
	nav := new(Recorder)
	g := NewAuthGuard(store, nav)

	g.Mount()
	g.Unmount()
	store.ClearSession()

	assert.Empty(t, nav.Navigations())
	assert.Equal(t, AuthChecking, g.Phase())
}

func TestAuthGuard_mountTwice(t *testing.T) {
	store := session.NewStore(session.WithState(session.Unauthenticated()))
	nav := new(Recorder)
	g := NewAuthGuard(store, nav)
	defer g.Unmount()

	g.Mount()
	g.Mount()
	assert.Len(t, nav.Navigations(), 1)
}

func TestAuthGuard_OnDecision(t *testing.T) {
	store := session.NewStore()
	nav := new(Recorder)
	var views []View
	g := NewAuthGuard(store, nav, OnDecision(func(d Decision) { views = append(views, d.View) }))

	g.Mount()
	require.NoError(t, store.SetSession("abc", student))
	store.ClearSession()
	g.Unmount()
	require.NoError(t, store.SetSession("abc", student))

	assert.Equal(t, []View{ViewLoading, ViewChildren, ViewRedirecting}, views)
}
