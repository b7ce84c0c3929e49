package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "quote:"

// CachedQuotes is a read-through Redis cache in front of a QuoteRepository.
// Cache failures degrade to the database; they are logged, never fatal.
type CachedQuotes struct {
	repo   QuoteRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedQuotes wraps a quote repository with a Redis cache.
func NewCachedQuotes(repo QuoteRepository, client *redis.Client, ttl time.Duration) *CachedQuotes {
	return &CachedQuotes{repo: repo, client: client, ttl: ttl}
}

// GetQuote returns the cached quote when fresh, falling back to the
// repository and repopulating the cache on a miss.
func (c *CachedQuotes) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	key := quoteKeyPrefix + symbol

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var q Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return q, nil
		}
		slog.Warn("corrupt cached quote, refetching", "symbol", symbol)
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("quote cache read failed", "symbol", symbol, "error", err)
	}

	q, err := c.repo.GetQuote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	c.store(ctx, key, q)
	return q, nil
}

// Invalidate drops the cached entries for the given symbols, used after a
// fresh fetch writes new prices to the store.
func (c *CachedQuotes) Invalidate(ctx context.Context, symbols ...string) {
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = quoteKeyPrefix + s
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("quote cache invalidation failed", "error", err)
	}
}

func (c *CachedQuotes) store(ctx context.Context, key string, q Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		slog.Warn("marshaling quote for cache failed", "symbol", q.Symbol, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("quote cache write failed", "symbol", q.Symbol, "error", err)
	}
}

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}
