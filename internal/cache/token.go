package cache

import (
	"context"
	"time"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/storage/redis"
)

const (
	tokenPrefix = "token"
)

// SetRefreshToken 存储会话的 refresh token
// Key: mk:token:refresh:{session_id}
func SetRefreshToken(ctx context.Context, sessionID, refreshToken string) error {
	key := redis.Key(tokenPrefix, "refresh", sessionID)
	ttl := time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour

	return redis.Client().Set(ctx, key, refreshToken, ttl).Err()
}

func GetRefreshToken(ctx context.Context, sessionID string) (string, error) {
	key := redis.Key(tokenPrefix, "refresh", sessionID)
	return redis.Client().Get(ctx, key).Result()
}

// DeleteRefreshToken 登出时删除
func DeleteRefreshToken(ctx context.Context, sessionID string) error {
	key := redis.Key(tokenPrefix, "refresh", sessionID)
	return redis.Client().Del(ctx, key).Err()
}

// ValidateRefreshTokenExists 检查 refresh token 是否存在且匹配
func ValidateRefreshTokenExists(ctx context.Context, sessionID, refreshToken string) bool {
	storedToken, err := GetRefreshToken(ctx, sessionID)
	if err != nil {
		return false
	}
	return storedToken == refreshToken
}
