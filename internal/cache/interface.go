package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type HistoryCacheResult struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

// HistoryCache caches rendered conversations. Keys are built from the
// unordered pair of usernames so both participants share an entry.
type HistoryCache interface {
	Get(ctx context.Context, a, b string, limit int) (*HistoryCacheResult, error)
	Set(ctx context.Context, a, b string, limit int, result *HistoryCacheResult, ttl time.Duration) error
	// Invalidate drops every cached page of the conversation between a and b.
	Invalidate(ctx context.Context, a, b string) error
	Close() error
}
