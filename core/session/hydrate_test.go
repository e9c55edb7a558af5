package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHydrate(t *testing.T) {
	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	errCorrupt := errors.New("corrupt record")

	tests := []struct {
		name        string
		rec         Record
		err         error
		wantErr     bool
		wantAuth    bool
		wantToken   string
		wantErrCase error
	}{
		{name: "valid session", rec: Record{Token: "abc", Identity: testIdentity, ExpiresAt: now.Add(time.Hour)}, wantAuth: true, wantToken: "abc"},
		{name: "no expiry", rec: Record{Token: "abc", Identity: testIdentity}, wantAuth: true, wantToken: "abc"},
		{name: "no session", err: ErrNoSession},
		{name: "wrapped no session", err: fmt.Errorf("redis: %w", ErrNoSession)},
		{name: "unreadable storage", err: errCorrupt, wantErr: true, wantErrCase: errCorrupt},
		{name: "expired session", rec: Record{Token: "abc", Identity: testIdentity, ExpiresAt: now}, wantErr: true},
		{name: "empty token", rec: Record{Identity: testIdentity}, wantErr: true, wantErrCase: ErrEmptyToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			p := PersistenceFunc(func(context.Context) (Record, error) { return tt.rec, tt.err })

			err := Hydrate(context.Background(), s, p)
			if tt.wantErr {
				var herr *HydrationError
				assert.True(t, errors.As(err, &herr), "want *HydrationError, got %v", err)
				if tt.wantErrCase != nil {
					assert.True(t, errors.Is(err, tt.wantErrCase))
				}
			} else {
				assert.NoError(t, err)
			}

			st := s.State()
			assert.False(t, st.IsLoading(), "hydration must always leave loading")
			assert.Equal(t, tt.wantAuth, st.IsAuthenticated())
			assert.Equal(t, tt.wantToken, st.Token())
		})
	}
}

func TestHydrate_resolvedWhileLoading(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		err  error
	}{
		{name: "late session", rec: Record{Token: "abc", Identity: testIdentity}},
		{name: "late failure", err: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			loading := make(chan struct{})
			loaded := make(chan struct{})
			p := PersistenceFunc(func(context.Context) (Record, error) {
				close(loading)
				<-loaded
				return tt.rec, tt.err
			})

			done := make(chan error)
			go func() { done <- Hydrate(context.Background(), s, p) }()

			<-loading
			s.ClearSession() // logged out while the record was being read
			var notified []State
			unsubscribe := s.Subscribe(func(st State) { notified = append(notified, st) })
			defer unsubscribe()
			close(loaded)
			<-done

			st := s.State()
			assert.False(t, st.IsAuthenticated(), "logout must win over a late hydration")
			assert.Empty(t, st.Token())
			assert.Empty(t, notified)
		})
	}
}
