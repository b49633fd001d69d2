package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/simsta2/modus-klar/storage/redis"
)

// 会话身份：session_id -> participant_id。
// 提醒进程在触发时读取，键不存在即视为已登出。
const (
	sessionPrefix = "session"
)

func SetSession(ctx context.Context, sessionID string, participantID int64, ttl time.Duration) error {
	key := redis.Key(sessionPrefix, sessionID)
	return redis.Client().Set(ctx, key, participantID, ttl).Err()
}

// GetSessionParticipant ok=false 表示会话不存在
func GetSessionParticipant(ctx context.Context, sessionID string) (int64, bool, error) {
	key := redis.Key(sessionPrefix, sessionID)

	val, err := redis.Client().Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get session: %w", err)
	}

	participantID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid session value %q: %w", val, err)
	}
	return participantID, true, nil
}

func DeleteSession(ctx context.Context, sessionID string) error {
	key := redis.Key(sessionPrefix, sessionID)
	return redis.Client().Del(ctx, key).Err()
}

// SessionIdentity 以固定会话 ID 读取当前登录的参与者，供提醒进程判断是否仍然登录
type SessionIdentity struct {
	SessionID string
}

func (s SessionIdentity) CurrentParticipantID(ctx context.Context) (int64, bool, error) {
	if s.SessionID == "" {
		return 0, false, nil
	}
	return GetSessionParticipant(ctx, s.SessionID)
}
