package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

const redisKeyPrefix = "stockvision:quote:"

// RedisQuoteCache stores msgpack-encoded quotes in redis with a native TTL.
type RedisQuoteCache struct {
	rdb *redis.Client
}

var _ domain.QuoteCache = (*RedisQuoteCache)(nil)

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisQuoteCache creates a redis-backed quote cache
func NewRedisQuoteCache(rdb *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{rdb: rdb}
}

// Get returns a cached quote if the key has not expired.
func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (*domain.Quote, bool, error) {
	b, err := c.rdb.Get(ctx, redisKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed on redis get: %w", err)
	}
	q, err := decodeQuote(b)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

// Set stores q with an expiry of ttl.
func (c *RedisQuoteCache) Set(ctx context.Context, q *domain.Quote, ttl time.Duration) error {
	payload, err := encodeQuote(q)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, redisKey(q.Symbol), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed on redis set: %w", err)
	}
	return nil
}

// Purge is a no-op; redis expires keys itself.
func (c *RedisQuoteCache) Purge(context.Context) (int64, error) {
	return 0, nil
}

func redisKey(symbol string) string {
	return redisKeyPrefix + strings.ToUpper(symbol)
}
