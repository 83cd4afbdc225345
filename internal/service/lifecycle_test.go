package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
)

type lifecycleFixture struct {
	registry *presence.Registry
	store    *fakeStore
	bc       *fakeBroadcaster
	lc       *Lifecycle
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	registry := presence.NewRegistry(zerolog.Nop())
	store := newFakeStore()
	bc := &fakeBroadcaster{}
	return &lifecycleFixture{
		registry: registry,
		store:    store,
		bc:       bc,
		lc:       NewLifecycle(registry, store, bc, zerolog.Nop()),
	}
}

func TestLifecycle_AnonymousConnectHasNoEffect(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	c := newFakeConn("c1")
	f.bc.attach(c)

	require.NoError(t, f.lc.Connect(ctx, c, ""))
	require.Equal(t, "", c.Username())
	require.Zero(t, f.registry.Len())
	require.Zero(t, f.bc.count())

	f.lc.Disconnect(ctx, c)
	require.Zero(t, f.bc.count())
}

func TestLifecycle_ConnectCreatesUserAndBroadcasts(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	c := newFakeConn("c1")
	f.bc.attach(c)

	require.NoError(t, f.lc.Connect(ctx, c, "alice"))
	require.Equal(t, "alice", c.Username())

	_, err := f.store.FindUser(ctx, "alice")
	require.NoError(t, err)

	got, ok := f.registry.Lookup("alice")
	require.True(t, ok)
	require.Equal(t, "c1", got.ID())
	require.Equal(t, []string{"alice"}, f.bc.last())
}

func TestLifecycle_BroadcastReachesEveryPreviousConnection(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	anon := newFakeConn("anon")
	alice := newFakeConn("c-alice")
	bob := newFakeConn("c-bob")
	for _, c := range []*fakeConn{anon, alice, bob} {
		f.bc.attach(c)
	}

	require.NoError(t, f.lc.Connect(ctx, anon, ""))
	require.NoError(t, f.lc.Connect(ctx, alice, "alice"))
	require.NoError(t, f.lc.Connect(ctx, bob, "bob"))

	for _, c := range []*fakeConn{anon, alice, bob} {
		c.mu.Lock()
		last := c.frames[len(c.frames)-1]
		c.mu.Unlock()
		snap, ok := last.(*domain.OnlineUsersMessage)
		require.True(t, ok)
		require.ElementsMatch(t, []string{"alice", "bob"}, snap.Users)
	}

	f.lc.Disconnect(ctx, bob)
	require.Equal(t, []string{"alice"}, f.bc.last())
}

func TestLifecycle_SupersededConnectionCloseIsSilent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	first := newFakeConn("c1")
	second := newFakeConn("c2")

	require.NoError(t, f.lc.Connect(ctx, first, "alice"))
	require.NoError(t, f.lc.Connect(ctx, second, "alice"))
	broadcasts := f.bc.count()

	f.lc.Disconnect(ctx, first)
	require.Equal(t, broadcasts, f.bc.count())

	got, ok := f.registry.Lookup("alice")
	require.True(t, ok)
	require.Equal(t, "c2", got.ID())

	f.lc.Disconnect(ctx, second)
	require.Equal(t, broadcasts+1, f.bc.count())
	require.Empty(t, f.bc.last())
}

func TestLifecycle_StoreFailureLeavesConnectionAnonymous(t *testing.T) {
	f := newLifecycleFixture(t)
	f.store.failEnsure = true
	ctx := context.Background()

	c := newFakeConn("c1")
	require.ErrorIs(t, f.lc.Connect(ctx, c, "alice"), errStoreDown)

	require.Equal(t, "", c.Username())
	require.Zero(t, f.registry.Len())
	require.Zero(t, f.bc.count())

	errs := c.errorFrames()
	require.Len(t, errs, 1)
	require.Equal(t, domain.ErrCodeInternalError, errs[0].Code)
}

func TestLifecycle_DisconnectTwiceBroadcastsOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	c := newFakeConn("c1")
	require.NoError(t, f.lc.Connect(ctx, c, "alice"))

	f.lc.Disconnect(ctx, c)
	f.lc.Disconnect(ctx, c)

	require.Equal(t, 2, f.bc.count())
	require.Empty(t, f.lc.Online())
}
