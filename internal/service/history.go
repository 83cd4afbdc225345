package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-live/dm-service/internal/cache"
	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/internal/repository"
)

// HistoryService reads conversations, optionally through a cache.
type HistoryService struct {
	store    repository.IdentityStore
	cache    cache.HistoryCache
	cacheTTL time.Duration
	sf       singleflight.Group
	logger   zerolog.Logger
}

// NewHistoryService creates a history reader. historyCache may be nil.
func NewHistoryService(
	store repository.IdentityStore,
	historyCache cache.HistoryCache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) *HistoryService {
	return &HistoryService{
		store:    store,
		cache:    historyCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetConversation returns the messages between me and other, oldest first.
// limit > 0 keeps only the most recent limit messages.
func (s *HistoryService) GetConversation(ctx context.Context, me, other string, limit int) ([]domain.HistoryEntry, error) {
	if limit < 0 {
		limit = 0
	}

	if s.cache == nil {
		return s.load(ctx, me, other, limit)
	}

	// Keyed on the ordered pair: the error for a missing user depends on
	// which side is asking.
	key := strconv.Itoa(len(me)) + ":" + me + ":" + other + ":" + strconv.Itoa(limit)

	// The flight is shared, so one caller's cancellation must not fail the rest.
	flightCtx := context.WithoutCancel(ctx)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.fetchWithCache(flightCtx, me, other, limit)
	})
	if err != nil {
		return nil, err
	}

	entries, ok := result.([]domain.HistoryEntry)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return entries, nil
}

func (s *HistoryService) fetchWithCache(ctx context.Context, me, other string, limit int) ([]domain.HistoryEntry, error) {
	cached, err := s.cache.Get(ctx, me, other, limit)
	if err == nil {
		return cached.Entries, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Msg("cache get error")
	}

	entries, err := s.load(ctx, me, other, limit)
	if err != nil {
		return nil, err
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(cacheCtx, me, other, limit, &cache.HistoryCacheResult{Entries: entries}, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("cache set error")
	}

	return entries, nil
}

func (s *HistoryService) load(ctx context.Context, me, other string, limit int) ([]domain.HistoryEntry, error) {
	self, err := s.store.FindUser(ctx, me)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %q", domain.ErrCurrentUserNotFound, me)
		}
		return nil, fmt.Errorf("failed to find user %q: %w", me, err)
	}

	peer, err := s.store.FindUser(ctx, other)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUser, other)
		}
		return nil, fmt.Errorf("failed to find user %q: %w", other, err)
	}

	messages, err := s.store.History(ctx, self.ID, peer.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(messages))
	for i := range messages {
		entries = append(entries, messages[i].ToHistoryEntry())
	}
	return entries, nil
}

// MessagePersisted drops the cached conversation the message belongs to.
func (s *HistoryService) MessagePersisted(ctx context.Context, m *domain.Message) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, m.Sender, m.Recipient); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidate error")
	}
}
