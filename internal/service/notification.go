package service

import (
	"context"
	"sync"
	"time"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/internal/model/dto"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = NewNotificationService(defaultStore())
	})
	return notificationService
}

// NotificationService 提醒权限与收件箱
type NotificationService struct {
	store Store
}

func NewNotificationService(store Store) *NotificationService {
	return &NotificationService{store: store}
}

// RequestPermission 参与者打开了提醒开关才允许布置提醒
func (s *NotificationService) RequestPermission(ctx context.Context, participantID int64) (bool, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return false, err
	}
	return p.NotificationsEnabled, nil
}

// Inbox 最近展示过的提醒
func (s *NotificationService) Inbox(ctx context.Context, participantID int64, limit int) ([]dto.ReminderResponse, error) {
	if limit <= 0 || limit > config.Cfg.ReminderInboxSize {
		limit = config.Cfg.ReminderInboxSize
	}

	entries, err := cache.ListReminders(ctx, participantID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ReminderResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ReminderResponse{
			Slot:    e.Slot,
			Title:   e.Title,
			Body:    e.Body,
			FiredAt: e.DisplayedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
