package queue

import (
	"context"
	"time"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/reminder"
)

// Notifier 把到期的提醒投递给 worker，由 worker 写入参与者的收件箱
type Notifier struct {
	SessionID string
	publish   func(context.Context, model.ReminderMessage) error
}

func NewNotifier(sessionID string) *Notifier {
	return &Notifier{SessionID: sessionID, publish: PublishReminder}
}

func (n *Notifier) Display(ctx context.Context, note reminder.Notification) error {
	return n.publish(ctx, model.ReminderMessage{
		SessionID:     n.SessionID,
		ParticipantID: note.ParticipantID,
		Slot:          note.Slot,
		Title:         note.Title,
		Body:          note.Body,
		FiredAt:       note.FireAt.Format(time.RFC3339),
	})
}
