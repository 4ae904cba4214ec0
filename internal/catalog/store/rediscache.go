package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"docgate/internal/catalog"
)

const snapshotKey = "docgate:catalog:snapshot"

// RedisCache caches catalog snapshots in redis with a TTL so that case
// evaluation does not rebuild the rulebook on every request. Redis failures
// degrade to the underlying source; the cache never makes a snapshot
// unavailable.
type RedisCache struct {
	source catalog.Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(source catalog.Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot returns the cached snapshot when present, otherwise builds one
// from the source and caches it.
func (c *RedisCache) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	payload, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err == nil {
		var snap catalog.Snapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return &snap, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable catalog snapshot", "error", err)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "catalog cache read failed, falling back to source", "error", err)
	}

	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(snap); err == nil {
		if err := c.client.Set(ctx, snapshotKey, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "catalog cache write failed", "error", err)
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot. Rule toggles call this so the next
// evaluation sees the new flags immediately instead of after TTL expiry.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed", "error", err)
	}
}
