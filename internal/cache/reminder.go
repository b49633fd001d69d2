package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/simsta2/modus-klar/storage/redis"
)

const (
	messageProcessedPrefix = "msg:processed"
	reminderInboxPrefix    = "reminder:inbox"
	processedTTL           = 24 * time.Hour
)

// TryMarkMessageProcessing 原子性地标记消息正在处理（SETNX）。
// 返回 true 表示首次处理，false 表示重复投递或正在处理。
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 处理失败时调用，允许重试
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 处理成功后标记完成并延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// InboxEntry 收件箱中的一条提醒
type InboxEntry struct {
	DisplayedAt time.Time `json:"displayed_at"`
	MessageID   string    `json:"message_id"`
	Slot        string    `json:"slot"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
}

// PushReminder 新提醒放在表头，只保留最近 limit 条
func PushReminder(ctx context.Context, participantID int64, entry InboxEntry, limit int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal inbox entry: %w", err)
	}

	key := redis.Key(reminderInboxPrefix, strconv.FormatInt(participantID, 10))
	pipe := redis.Client().TxPipeline()
	pipe.LPush(ctx, key, data)
	if limit > 0 {
		pipe.LTrim(ctx, key, 0, int64(limit-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ListReminders 按时间倒序返回最多 limit 条
func ListReminders(ctx context.Context, participantID int64, limit int) ([]InboxEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	key := redis.Key(reminderInboxPrefix, strconv.FormatInt(participantID, 10))
	raw, err := redis.Client().LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	entries := make([]InboxEntry, 0, len(raw))
	for _, item := range raw {
		var entry InboxEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
