package redisclient

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Client is the catalog cache: a key-value store with per-key TTL plus a
// per-scope generation counter used to invalidate whole list namespaces at
// once. It is never a source of truth; every failure degrades to a miss and
// is logged, never propagated.
type Client struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, logger: util.GetLogger()}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the cached value for key, or a miss. Errors count as misses.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return val, true
}

// Set stores value under key with the given TTL. Failures are logged and
// dropped.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a single cache entry.
func (c *Client) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Generation returns the current generation counter for a namespace scope.
// Keys that embed the generation become unreachable when it is bumped, which
// invalidates the whole namespace without scanning it. ok=false means the
// counter could not be read and the caller must bypass the namespace rather
// than risk serving entries from a stale generation.
func (c *Client) Generation(ctx context.Context, scope string) (int64, bool) {
	gen, err := c.rdb.Get(ctx, genKey(scope)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		c.logger.Warn("cache generation read failed", zap.String("scope", scope), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// BumpGeneration invalidates every key carrying the previous generation for
// the scope.
func (c *Client) BumpGeneration(ctx context.Context, scope string) {
	if err := c.rdb.Incr(ctx, genKey(scope)).Err(); err != nil {
		c.logger.Warn("cache generation bump failed", zap.String("scope", scope), zap.Error(err))
	}
}

func genKey(scope string) string {
	return fmt.Sprintf("%s:gen", scope)
}
