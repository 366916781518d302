package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(idleTTL time.Duration) *SessionRegistry {
	return NewSessionRegistry(idleTTL, time.Minute, zap.NewNop())
}

func TestSessionRegistry_RegisterAndGet(t *testing.T) {
	registry := newTestRegistry(0)

	session := registry.Register("alice@example.com", "Alice", &fakeClient{userID: "alice@example.com"})
	require.NotEmpty(t, session.Handle)
	assert.Len(t, session.Handle, 64, "handle should be 32 random bytes hex encoded")

	got, ok := registry.Get(session.Handle)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", got.UserID)
	assert.Equal(t, "Alice", got.DisplayName)
}

func TestSessionRegistry_UnknownHandleIsNotAuthenticated(t *testing.T) {
	registry := newTestRegistry(0)

	_, ok := registry.Get("no-such-handle")
	assert.False(t, ok)
}

func TestSessionRegistry_RemoveIsIdempotent(t *testing.T) {
	registry := newTestRegistry(0)

	session := registry.Register("alice@example.com", "Alice", &fakeClient{})
	registry.Remove(session.Handle)
	registry.Remove(session.Handle)

	_, ok := registry.Get(session.Handle)
	assert.False(t, ok)
	assert.Zero(t, registry.Len())
}

func TestSessionRegistry_RepeatLoginEvictsOldSession(t *testing.T) {
	registry := newTestRegistry(0)

	first := registry.Register("alice@example.com", "Alice", &fakeClient{})
	second := registry.Register("alice@example.com", "Alice", &fakeClient{})

	require.NotEqual(t, first.Handle, second.Handle)
	assert.Equal(t, 1, registry.Len(), "one user must never hold two live sessions")

	_, ok := registry.Get(first.Handle)
	assert.False(t, ok, "old handle must be dead after re-login")
	_, ok = registry.Get(second.Handle)
	assert.True(t, ok)
}

func TestSessionRegistry_HandlesAreUnique(t *testing.T) {
	registry := newTestRegistry(0)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session := registry.Register(fmt.Sprintf("user%d@example.com", i), "U", &fakeClient{})
		require.False(t, seen[session.Handle], "duplicate handle generated")
		seen[session.Handle] = true
	}
}

func TestSessionRegistry_ConcurrentAccess(t *testing.T) {
	registry := newTestRegistry(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user%d@example.com", i)
			session := registry.Register(userID, "U", &fakeClient{userID: userID})

			got, ok := registry.Get(session.Handle)
			if !ok || got.UserID != userID {
				t.Errorf("session for %s corrupted", userID)
				return
			}
			registry.Remove(session.Handle)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, registry.Len())
}

func TestSessionRegistry_IdleSweepEvicts(t *testing.T) {
	registry := NewSessionRegistry(20*time.Millisecond, 10*time.Millisecond, zap.NewNop())
	registry.Start()
	defer registry.Stop()

	registry.Register("alice@example.com", "Alice", &fakeClient{})

	// Poll Len rather than Get: Get refreshes the idle timestamp.
	assert.Eventually(t, func() bool {
		return registry.Len() == 0
	}, time.Second, 5*time.Millisecond, "idle session should be evicted")
}

func TestSessionRegistry_ZeroTTLNeverEvicts(t *testing.T) {
	registry := newTestRegistry(0)
	registry.Start()
	defer registry.Stop()

	session := registry.Register("alice@example.com", "Alice", &fakeClient{})
	time.Sleep(30 * time.Millisecond)

	_, ok := registry.Get(session.Handle)
	assert.True(t, ok)
}
