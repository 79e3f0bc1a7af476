// Package cache provides an optional redis-backed resolution cache for the
// redirect hot path. The cache is a read-through optimization only: misses and
// redis failures fall back to storage, and deletes invalidate eagerly so
// collaborators never see a long-lived mapping for a removed code.
package cache

import (
	"LinkLoom-Backend/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "link:"

// Entry is the cached form of a resolved code.
type Entry struct {
	LinkID         int64  `json:"link_id"`
	DestinationURL string `json:"destination_url"`
}

// LinkCache caches code -> destination resolutions.
type LinkCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// New connects to redis. An empty host disables the cache: the caller gets a
// nil *LinkCache, and all methods are nil-safe no-ops.
func New(cfg *config.Redis, log *zap.Logger) (*LinkCache, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("connected to redis resolution cache",
		zap.String("host", cfg.Host),
		zap.Duration("ttl", cfg.TTL))

	return &LinkCache{rdb: rdb, ttl: cfg.TTL, log: log}, nil
}

// Get looks up a cached resolution.
func (c *LinkCache) Get(ctx context.Context, code string) (*Entry, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, keyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache get failed", zap.String("code", code), zap.Error(err))
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.Warn("cache entry corrupt, dropping", zap.String("code", code), zap.Error(err))
		c.rdb.Del(ctx, keyPrefix+code)
		return nil, false
	}
	return &entry, true
}

// Set stores a resolution with the configured TTL.
func (c *LinkCache) Set(ctx context.Context, code string, entry *Entry) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+code, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("code", code), zap.Error(err))
	}
}

// Invalidate drops cached resolutions, used on delete.
func (c *LinkCache) Invalidate(ctx context.Context, codes ...string) {
	if c == nil || len(codes) == 0 {
		return
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = keyPrefix + code
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidation failed", zap.Strings("codes", codes), zap.Error(err))
	}
}

// Close releases the redis connection.
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
