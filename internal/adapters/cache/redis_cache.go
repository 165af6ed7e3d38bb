package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "onebox:label:"

// RedisCache stores labels in Redis and lets key TTLs handle expiry
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get retrieves the cached label for a message key
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	vals, err := c.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	lastSeen, _ := strconv.ParseInt(vals["last_seen"], 10, 64)
	expiresAt, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	entry := &core.CacheEntry{
		Key:       key,
		Label:     core.Label(vals["label"]),
		LastSeen:  time.Unix(lastSeen, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return entry, nil
}

// Set stores a cache entry with a TTL matching its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	k := redisKeyPrefix + entry.Key
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k,
			"label", string(entry.Label),
			"last_seen", entry.LastSeen.Unix(),
			"expires_at", entry.ExpiresAt.Unix())
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys on its own
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
