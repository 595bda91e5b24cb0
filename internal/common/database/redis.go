// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"car-recommender/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client. No connection is made until first use.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb}
}

// NewRedisFromClient wraps an existing client, mostly for tests.
func NewRedisFromClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{Client: rdb}
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// PushCapped prepends value to the list at key, keeps at most maxLen
// entries and refreshes the key's expiration, all in one transaction.
func (c *RedisClient) PushCapped(ctx context.Context, key string, value interface{}, maxLen int, ttl time.Duration) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		if maxLen > 0 {
			pipe.LTrim(ctx, key, 0, int64(maxLen-1))
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis push %s: %w", key, err)
	}
	return nil
}

// Range returns list entries start..stop (inclusive, redis semantics).
func (c *RedisClient) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.Client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range %s: %w", key, err)
	}
	return vals, nil
}

// Del deletes one or more keys
func (c *RedisClient) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}
