package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(ManagerOptions{
		Config:    quietConfig(),
		Provider:  echoProvider(),
		Retention: time.Minute,
	})
}

func TestManagerStartReplacesSlot(t *testing.T) {
	mgr := newTestManager()
	defer mgr.CloseAll()

	key := Key{UserID: "user-1", TabID: "tab-a"}
	first, err := mgr.Start(key, testProfile, nil)
	require.NoError(t, err)
	second, err := mgr.Start(key, testProfile, nil)
	require.NoError(t, err)

	select {
	case <-first.Done():
	default:
		t.Fatal("Expected replaced session to be closed")
	}

	got, ok := mgr.Get(key)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, mgr.Len())
}

func TestManagerTabsAreIndependent(t *testing.T) {
	mgr := newTestManager()
	defer mgr.CloseAll()

	_, err := mgr.Start(Key{UserID: "user-1", TabID: "a"}, testProfile, nil)
	require.NoError(t, err)
	_, err = mgr.Start(Key{UserID: "user-1", TabID: "b"}, testProfile, nil)
	require.NoError(t, err)
	_, err = mgr.Start(Key{UserID: "user-2", TabID: "a"}, testProfile, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, mgr.Len())

	assert.True(t, mgr.Close(Key{UserID: "user-1", TabID: "a"}))
	assert.False(t, mgr.Close(Key{UserID: "user-1", TabID: "a"}))
	assert.Equal(t, 2, mgr.Len())

	mgr.CloseUser("user-1")
	assert.Equal(t, 1, mgr.Len())
	_, ok := mgr.Get(Key{UserID: "user-2", TabID: "a"})
	assert.True(t, ok)
}

func TestManagerStartRejectsInvalidProfile(t *testing.T) {
	mgr := newTestManager()
	defer mgr.CloseAll()

	_, err := mgr.Start(Key{UserID: "u", TabID: "t"}, testProfile.Normalized(), nil)
	require.NoError(t, err)

	bad := testProfile
	bad.Name = ""
	_, err = mgr.Start(Key{UserID: "u", TabID: "t"}, bad, nil)
	require.Error(t, err)

	_, ok := mgr.Get(Key{UserID: "u", TabID: "t"})
	assert.True(t, ok, "failed start must not evict the existing session")
}

func TestManagerReapRemovesOldEndedSessions(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager()
	defer mgr.CloseAll()

	endedKey := Key{UserID: "user-1", TabID: "done"}
	liveKey := Key{UserID: "user-1", TabID: "live"}

	ended, err := mgr.Start(endedKey, testProfile, nil)
	require.NoError(t, err)
	_, err = mgr.Start(liveKey, testProfile, nil)
	require.NoError(t, err)

	_, err = ended.End(ctx, EndUserRequested)
	require.NoError(t, err)

	assert.Equal(t, 0, mgr.Reap(ctx), "recently ended sessions are retained")

	mgr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, mgr.Reap(ctx))

	_, ok := mgr.Get(endedKey)
	assert.False(t, ok)
	_, ok = mgr.Get(liveKey)
	assert.True(t, ok)
}

func TestManagerReaperStopsOnCancel(t *testing.T) {
	mgr := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	mgr.StartReaper(ctx, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)
}
