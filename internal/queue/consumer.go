package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/storage/mq"
)

// HandleReminderMessage 把提醒写入参与者的收件箱。
// 同一 MessageID 只处理一次；会话已登出或换人时丢弃。
func HandleReminderMessage(ctx context.Context, body []byte) error {
	var msg model.ReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed reminder message: %v", err)}
	}
	if msg.MessageID == "" || msg.ParticipantID == 0 {
		return &errors.SkipMessageError{Reason: "reminder message without message_id or participant_id"}
	}

	processed, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
	if err != nil {
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		// 检查失败时继续处理，可能重复写入一条提醒
	} else if !processed {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
	}

	if msg.SessionID != "" {
		current, ok, err := cache.GetSessionParticipant(ctx, msg.SessionID)
		if err != nil {
			_ = cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("failed to read session: %w", err)
		}
		if !ok || current != msg.ParticipantID {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("session %s no longer belongs to participant %d", msg.SessionID, msg.ParticipantID)}
		}
	}

	displayedAt, err := time.Parse(time.RFC3339, msg.FiredAt)
	if err != nil {
		displayedAt = time.Now()
	}

	entry := cache.InboxEntry{
		DisplayedAt: displayedAt,
		MessageID:   msg.MessageID,
		Slot:        string(msg.Slot),
		Title:       msg.Title,
		Body:        msg.Body,
	}
	if err := cache.PushReminder(ctx, msg.ParticipantID, entry, config.Cfg.ReminderInboxSize); err != nil {
		// 处理失败，取消标记，允许重试
		_ = cache.UnmarkMessageProcessing(ctx, msg.MessageID)
		return fmt.Errorf("failed to push reminder: %w", err)
	}

	if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}

	logger.Logger.Info("Reminder delivered to inbox",
		zap.String("message_id", msg.MessageID),
		zap.Int64("participant_id", msg.ParticipantID),
		zap.String("slot", string(msg.Slot)),
	)
	return nil
}

// StartReminderConsumer 启动提醒消费者
func StartReminderConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.ReminderQueue,
		ConsumerTag:   "reminder_display_consumer",
		PrefetchCount: 10,
		Handler:       HandleReminderMessage,
	})
}

// StartAllConsumers 启动所有消费者，阻塞直到 ctx 取消；
// 消费者异常退出后等待一段时间重新启动
func StartAllConsumers(ctx context.Context) {
	consumers := map[string]func(context.Context) error{
		"reminder_display": StartReminderConsumer,
	}

	var wg sync.WaitGroup
	for name, start := range consumers {
		wg.Add(1)
		go func(name string, start func(context.Context) error) {
			defer wg.Done()
			runConsumer(ctx, name, start)
		}(name, start)
	}

	wg.Wait()
}

func runConsumer(ctx context.Context, name string, start func(context.Context) error) {
	const retryDelay = 5 * time.Second

	for {
		err := start(ctx)
		if ctx.Err() != nil {
			logger.Logger.Info("Consumer stopped", zap.String("consumer", name))
			return
		}

		logger.Logger.Error("Consumer exited, restarting",
			zap.String("consumer", name),
			zap.Duration("retry_in", retryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
