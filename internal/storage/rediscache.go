package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/TravelMesh/read_layer/pkg/logger"
)

const cacheKeyPrefix = "offchain:doc:"

// RedisCache is a read-through cache decorator around another adapter.
// Off-chain documents are content-addressed and immutable, so caching by URI
// is safe; a TTL bounds staleness for mutable stores.
type RedisCache struct {
	inner Adapter
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewRedisCache wraps inner with a Redis read-through cache.
func NewRedisCache(inner Adapter, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if log == nil {
		log = logger.NewDefault("storage.rediscache")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

// Fetch returns the cached document when present, otherwise fetches through
// the inner adapter and populates the cache. Cache failures degrade to a
// plain fetch, never to a request failure.
func (c *RedisCache) Fetch(ctx context.Context, uri string) (map[string]any, error) {
	key := cacheKeyPrefix + uri

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var doc map[string]any
		if unmarshalErr := json.Unmarshal(raw, &doc); unmarshalErr == nil {
			return doc, nil
		}
		c.log.WithField("uri", uri).Warn("corrupt cache entry, refetching")
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithField("uri", uri).WithError(err).Warn("cache read failed")
	}

	doc, err := c.inner.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	if raw, marshalErr := json.Marshal(doc); marshalErr == nil {
		if setErr := c.rdb.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
			c.log.WithField("uri", uri).WithError(setErr).Warn("cache write failed")
		}
	}
	return doc, nil
}
