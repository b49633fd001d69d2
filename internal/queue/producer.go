package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/snowflake"
	"github.com/simsta2/modus-klar/storage/mq"
)

// PublishReminder 发布一条待展示的提醒
func PublishReminder(ctx context.Context, msg model.ReminderMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("participant_id", msg.ParticipantID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = fmt.Sprintf("reminder_%d", id)
	}

	err := mq.PublishMessage(ctx, mq.ReminderExchange, mq.ReminderRoutingKey, msg.MessageID, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish reminder message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("participant_id", msg.ParticipantID),
			zap.String("slot", string(msg.Slot)),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published reminder message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("participant_id", msg.ParticipantID),
		zap.String("slot", string(msg.Slot)),
	)
	return nil
}
