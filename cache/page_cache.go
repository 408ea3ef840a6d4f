// Package cache keeps fetched pages in Redis so repeated questions do not
// hit the government sites again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pharmassist-backend/logging"
)

const pageKeyPrefix = "page:"

// RedisPageCache implements scraper.PageCache on Redis. Cache failures are
// logged and treated as misses.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Connect parses a redis:// URL and verifies the server answers PING
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

// NewRedisPageCache creates a page cache storing entries for ttl
func NewRedisPageCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisPageCache {
	return &RedisPageCache{
		client: client,
		ttl:    ttl,
		logger: logging.OrNop(logger),
	}
}

func pageKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return pageKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached body of url
func (c *RedisPageCache) Get(ctx context.Context, url string) (string, bool) {
	val, err := c.client.Get(ctx, pageKey(url)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("page cache read failed", zap.String("url", url), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set stores body for url
func (c *RedisPageCache) Set(ctx context.Context, url, body string) {
	if err := c.client.Set(ctx, pageKey(url), body, c.ttl).Err(); err != nil {
		c.logger.Warn("page cache write failed", zap.String("url", url), zap.Error(err))
	}
}
