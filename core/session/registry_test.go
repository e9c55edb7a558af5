package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Acquire(t *testing.T) {
	r := NewRegistry()

	s1, created, release1 := r.Acquire("sid")
	assert.True(t, created)
	assert.True(t, s1.State().IsLoading())

	s2, created, release2 := r.Acquire("sid")
	assert.False(t, created)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Len())

	release1()
	release1() // once only
	_, ok := r.Lookup("sid")
	assert.True(t, ok)

	release2()
	_, ok = r.Lookup("sid")
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	s3, created, release3 := r.Acquire("sid")
	defer release3()
	assert.True(t, created)
	assert.NotSame(t, s1, s3)
}

func TestRegistry_ClearSession(t *testing.T) {
	r := NewRegistry()
	r.ClearSession("unknown") // no-op

	s, _, release := r.Acquire("sid")
	defer release()
	require.NoError(t, s.SetSession("abc", testIdentity))

	var notified bool
	unsubscribe := s.Subscribe(func(st State) { notified = !st.IsAuthenticated() })
	defer unsubscribe()

	r.ClearSession("sid")
	assert.True(t, notified)
	assert.False(t, s.State().IsAuthenticated())
}
