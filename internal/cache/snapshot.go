// Package cache keeps reconciled race snapshots in Redis so that readers do
// not need to re-run reconciliation between scheduled passes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/racefuse/internal/config"
	"github.com/yourusername/racefuse/internal/models"
)

const keyPrefix = "racefuse:race:"

// SnapshotCache stores the fused entrants of a race keyed by RaceKey
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache connects to Redis and verifies the connection
func NewSnapshotCache(ctx context.Context, cfg config.RedisConfig) (*SnapshotCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewSnapshotCacheWithClient(rdb, cfg.SnapshotTTL()), nil
}

// NewSnapshotCacheWithClient wraps an existing client
func NewSnapshotCacheWithClient(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a race
func Key(key models.RaceKey) string {
	return keyPrefix + key.String()
}

// Put stores a race snapshot
func (c *SnapshotCache) Put(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error {
	data, err := json.Marshal(entrants)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := c.client.Set(ctx, Key(key), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get retrieves a race snapshot. A miss returns found=false and no error.
func (c *SnapshotCache) Get(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, bool, error) {
	val, err := c.client.Get(ctx, Key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entrants []*models.FusedEntrant
	if err := json.Unmarshal([]byte(val), &entrants); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return entrants, true, nil
}

// Invalidate removes a race snapshot
func (c *SnapshotCache) Invalidate(ctx context.Context, key models.RaceKey) error {
	if err := c.client.Del(ctx, Key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
