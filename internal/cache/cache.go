package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a thin JSON read-through layer over Redis. A nil client disables
// caching entirely; every call degrades to a miss.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
	Log zerolog.Logger
}

// GetJSON loads a cached value into dest and reports whether it was found.
func (c Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c.R == nil {
		return false
	}
	raw, err := c.R.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return false
	}
	return true
}

// SetJSON stores a value under the cache TTL. Failures are logged, never returned.
func (c Cache) SetJSON(ctx context.Context, key string, v any) {
	if c.R == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache marshal failed")
		return
	}
	if err := c.R.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate drops the given keys.
func (c Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.R == nil || len(keys) == 0 {
		return
	}
	if err := c.R.Del(ctx, keys...).Err(); err != nil {
		c.Log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}
