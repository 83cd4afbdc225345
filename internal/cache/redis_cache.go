package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisHistoryCache stores each conversation as one hash, one field per
// limit, so a single DEL invalidates every page.
type RedisHistoryCache struct {
	client *redis.Client
	prefix string
}

func NewRedisHistoryCache(cfg RedisConfig, prefix string) (*RedisHistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisHistoryCacheWithClient(client, prefix), nil
}

func NewRedisHistoryCacheWithClient(client *redis.Client, prefix string) *RedisHistoryCache {
	return &RedisHistoryCache{
		client: client,
		prefix: prefix,
	}
}

// BuildKey returns the hash key for the conversation between a and b.
func (c *RedisHistoryCache) BuildKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%d:%s:%s", c.prefix, len(a), a, b)
}

func (c *RedisHistoryCache) Get(ctx context.Context, a, b string, limit int) (*HistoryCacheResult, error) {
	data, err := c.client.HGet(ctx, c.BuildKey(a, b), strconv.Itoa(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result HistoryCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, a, b string, limit int, result *HistoryCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := c.BuildKey(a, b)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context, a, b string) error {
	if err := c.client.Del(ctx, c.BuildKey(a, b)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}
