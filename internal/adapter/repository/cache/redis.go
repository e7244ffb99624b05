package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/winisorts/classifier-api/internal/domain/repository"
	"github.com/winisorts/classifier-api/internal/domain/service"
)

// RedisCache shares classifications between replicas through Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.ClassificationCache = (*RedisCache)(nil)

// NewRedisCache creates a Redis-backed classification cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*service.Classification, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result service.Classification
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached classification: %w", err)
	}
	return &result, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, result *service.Classification) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
