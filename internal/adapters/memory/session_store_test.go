package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/camera"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
)

func startedSession(t *testing.T, id string) (*services.Session, *camera.Feed) {
	t.Helper()
	feed := camera.NewFeed()
	s := services.NewSession(services.SessionConfig{ID: id, Camera: feed})
	require.NoError(t, s.Start(context.Background()))
	return s, feed
}

func TestSessionStore_PutGetDelete(t *testing.T) {
	store := NewSessionStore(time.Hour, time.Hour, nil)
	s, feed := startedSession(t, "a")

	store.Put(s)
	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, store.Len())

	store.Delete("a")
	_, ok = store.Get("a")
	assert.False(t, ok)
	assert.True(t, feed.Stopped(), "deleting a session releases its camera")
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(30*time.Millisecond, time.Hour, nil)
	s, feed := startedSession(t, "b")
	store.Put(s)

	time.Sleep(60 * time.Millisecond)
	store.Purge()

	_, ok := store.Get("b")
	assert.False(t, ok)
	assert.True(t, feed.Stopped(), "expired sessions are closed")
}

func TestSessionStore_GetRefreshesExpiry(t *testing.T) {
	store := NewSessionStore(80*time.Millisecond, time.Hour, nil)
	s, feed := startedSession(t, "c")
	store.Put(s)

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		_, ok := store.Get("c")
		require.True(t, ok, "access %d should keep the session alive", i)
	}
	assert.False(t, feed.Stopped())
}

func TestSessionStore_Close(t *testing.T) {
	store := NewSessionStore(time.Hour, time.Hour, nil)
	s1, f1 := startedSession(t, "d")
	s2, f2 := startedSession(t, "e")
	store.Put(s1)
	store.Put(s2)

	store.Close()
	assert.Equal(t, 0, store.Len())
	assert.True(t, f1.Stopped())
	assert.True(t, f2.Stopped())
}
