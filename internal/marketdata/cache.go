package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisPriceCache provides Redis-based caching for spot prices.
// A nil cache is a valid no-op, so the client never branches on its presence.
type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// PriceCacheEntry represents a cached price with metadata
type PriceCacheEntry struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRedisPriceCache creates a new Redis-based price cache.
// If client is nil, returns nil (optional Redis support).
func NewRedisPriceCache(client *redis.Client, ttl time.Duration) *RedisPriceCache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = 60 * time.Second
	}
	return &RedisPriceCache{client: client, ttl: ttl}
}

// Get retrieves a price from cache.
// Returns 0 and false on a miss or any cache error.
func (c *RedisPriceCache) Get(ctx context.Context, symbol string) (float64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}

	key := c.buildKey(symbol)

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().
				Err(err).
				Str("key", key).
				Msg("Redis get error - treating as cache miss")
		}
		return 0, false
	}

	var entry PriceCacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to unmarshal cached price")
		return 0, false
	}

	log.Debug().
		Str("symbol", symbol).
		Float64("price", entry.Price).
		Time("cached_at", entry.Timestamp).
		Msg("Cache hit for spot price")

	return entry.Price, true
}

// Set stores a price in cache with the configured TTL. Cache failures are
// logged and swallowed; pricing never depends on the cache being up.
func (c *RedisPriceCache) Set(ctx context.Context, symbol string, price float64) {
	if c == nil || c.client == nil {
		return
	}

	key := c.buildKey(symbol)

	entry := PriceCacheEntry{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal price entry")
		return
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(cacheCtx, key, data, c.ttl).Err(); err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to cache spot price")
	}
}

// Health checks if the Redis connection is healthy
func (c *RedisPriceCache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("cache not initialized")
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(cacheCtx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *RedisPriceCache) buildKey(symbol string) string {
	return fmt.Sprintf("cryptoswing:spot:%s", symbol)
}
