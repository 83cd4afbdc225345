package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/presence"
)

func TestHistoryService_Errors(t *testing.T) {
	store := newFakeStore("alice")
	history := NewHistoryService(store, nil, 0, zerolog.Nop())
	ctx := context.Background()

	_, err := history.GetConversation(ctx, "nobody", "alice", 0)
	require.ErrorIs(t, err, domain.ErrCurrentUserNotFound)

	_, err = history.GetConversation(ctx, "alice", "ghost", 0)
	require.ErrorIs(t, err, domain.ErrUnknownUser)
}

func TestHistoryService_LimitKeepsMostRecent(t *testing.T) {
	store := newFakeStore("alice", "bob")
	router := NewRouter(presence.NewRegistry(zerolog.Nop()), store, zerolog.Nop())
	history := NewHistoryService(store, nil, 0, zerolog.Nop())
	ctx := context.Background()

	for _, b := range []string{"1", "2", "3"} {
		_, err := router.Route(ctx, "alice", "bob", b)
		require.NoError(t, err)
	}
	_, err := router.Route(ctx, "bob", "alice", "4")
	require.NoError(t, err)

	entries, err := history.GetConversation(ctx, "alice", "bob", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "3", entries[0].Msg)
	require.Equal(t, "4", entries[1].Msg)
	require.Equal(t, "bob", entries[1].Username)
}

func TestHistoryService_CacheServesAndInvalidates(t *testing.T) {
	store := newFakeStore("alice", "bob")
	c := newFakeCache()
	history := NewHistoryService(store, c, 0, zerolog.Nop())
	router := NewRouter(presence.NewRegistry(zerolog.Nop()), store, zerolog.Nop(), history)
	ctx := context.Background()

	_, err := router.Route(ctx, "alice", "bob", "first")
	require.NoError(t, err)

	entries, err := history.GetConversation(ctx, "alice", "bob", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, store.histories)

	// Same pair from the other side is a cache hit.
	entries, err = history.GetConversation(ctx, "bob", "alice", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, store.histories)

	_, err = router.Route(ctx, "bob", "alice", "second")
	require.NoError(t, err)
	require.Equal(t, 2, c.invalidated)

	entries, err = history.GetConversation(ctx, "alice", "bob", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, store.histories)
}

func TestHistoryService_CacheErrorFallsBackToStore(t *testing.T) {
	store := newFakeStore("alice", "bob")
	c := newFakeCache()
	c.failGet = true
	history := NewHistoryService(store, c, 0, zerolog.Nop())

	entries, err := history.GetConversation(context.Background(), "alice", "bob", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, 1, store.histories)
}

// blockingStore holds FindUser calls until release is closed and then
// honors cancellation like a real driver would.
type blockingStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) FindUser(ctx context.Context, name string) (*domain.User, error) {
	s.entered <- struct{}{}
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fakeStore.FindUser(ctx, name)
}

func TestHistoryService_ConcurrentOppositeDirectionsKeepOwnErrors(t *testing.T) {
	store := &blockingStore{
		fakeStore: newFakeStore("bob"),
		entered:   make(chan struct{}, 4),
		release:   make(chan struct{}),
	}
	history := NewHistoryService(store, newFakeCache(), 0, zerolog.Nop())
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := history.GetConversation(ctx, "carol", "bob", 0)
		errs <- err
	}()
	go func() {
		_, err := history.GetConversation(ctx, "bob", "carol", 0)
		errs <- err
	}()

	// Both flights are in the store at once, so neither joined the other.
	<-store.entered
	<-store.entered
	close(store.release)

	var gotCurrent, gotUnknown bool
	for i := 0; i < 2; i++ {
		err := <-errs
		gotCurrent = gotCurrent || errors.Is(err, domain.ErrCurrentUserNotFound)
		gotUnknown = gotUnknown || errors.Is(err, domain.ErrUnknownUser)
	}
	require.True(t, gotCurrent)
	require.True(t, gotUnknown)
}

func TestHistoryService_CanceledCallerDoesNotFailSharedFlight(t *testing.T) {
	store := &blockingStore{
		fakeStore: newFakeStore("alice", "bob"),
		entered:   make(chan struct{}, 4),
		release:   make(chan struct{}),
	}
	history := NewHistoryService(store, newFakeCache(), 0, zerolog.Nop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := history.GetConversation(leaderCtx, "alice", "bob", 0)
		leaderErr <- err
	}()
	<-store.entered

	followerErr := make(chan error, 1)
	go func() {
		_, err := history.GetConversation(context.Background(), "alice", "bob", 0)
		followerErr <- err
	}()

	cancel()
	close(store.release)

	require.NoError(t, <-followerErr)
	require.NoError(t, <-leaderErr)
}
