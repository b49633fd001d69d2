package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/simsta2/modus-klar/storage/redis"
)

// 基于 SETNX 的分布式锁，值为持有者 token，只有持有者能释放
const (
	lockPrefix = "lock"
)

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试加锁，成功时返回用于 Unlock 的 token
func TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	fullkey := redis.Key(lockPrefix, key)

	ok, err := redis.Client().SetNX(ctx, fullkey, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock 释放锁；锁已过期或被他人持有时不做任何事
func Unlock(ctx context.Context, key, token string) error {
	fullkey := redis.Key(lockPrefix, key)
	return unlockScript.Run(ctx, redis.Client(), []string{fullkey}, token).Err()
}
