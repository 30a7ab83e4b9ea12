package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nirujan123/risk-engine/internal/risk"
)

const redisKeyPrefix = "risk-engine:"

// RedisCache stores price entries in redis. A zero TTL keeps entries forever.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 4,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (risk.PriceMatrix, bool, error) {
	b, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return risk.PriceMatrix{}, false, nil
	}
	if err != nil {
		return risk.PriceMatrix{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	pm, err := decodePrices(b)
	if err != nil {
		return risk.PriceMatrix{}, false, err
	}
	return pm, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, pm risk.PriceMatrix) error {
	b, err := encodePrices(pm)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error { return c.client.Close() }
