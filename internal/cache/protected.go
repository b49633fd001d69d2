package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/simsta2/modus-klar/storage/redis"
)

// ProtectedCache JSON 序列化的键值缓存，未命中返回 (false, nil)
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
}

func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return redis.Client().Set(ctx, redis.Key(pc.keyPrefix, key), data, pc.ttl).Err()
}

func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := redis.Client().Get(ctx, redis.Key(pc.keyPrefix, key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

// 预定义的缓存实例
var (
	ProgressSnapshotCache = NewProtectedCache("progress:snapshot", 7*24*time.Hour)
)
