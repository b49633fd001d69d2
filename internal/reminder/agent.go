package reminder

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
)

// Agent 跟随会话身份启停提醒：有人登录时 Initialize，登出后 Stop。
// 权限被拒绝的参与者不再重试，直到会话换人。
type Agent struct {
	scheduler *Scheduler
	identity  IdentitySource
	interval  time.Duration
	logger    *zap.Logger

	armedFor int64
	deniedTo int64
}

func NewAgent(scheduler *Scheduler, identity IdentitySource, interval time.Duration) *Agent {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Agent{
		scheduler: scheduler,
		identity:  identity,
		interval:  interval,
		logger:    logger.Named("reminder-agent"),
	}
}

// Sync 读取一次会话身份并调整提醒
func (a *Agent) Sync(ctx context.Context) error {
	participantID, ok, err := a.identity.CurrentParticipantID(ctx)
	if err != nil {
		return err
	}

	if !ok {
		if a.armedFor != 0 {
			a.logger.Info("Session ended, stopping reminders", zap.Int64("participant_id", a.armedFor))
			a.scheduler.Stop()
		}
		a.armedFor, a.deniedTo = 0, 0
		return nil
	}

	if participantID == a.deniedTo {
		return nil
	}
	if participantID == a.armedFor && a.hasArmedSlot() {
		return nil
	}

	granted, err := a.scheduler.Initialize(ctx, participantID)
	switch {
	case stderrors.Is(err, errors.PermissionDenied):
		// 上一位参与者的定时器触发时也会因为身份不符被丢弃，这里直接取消
		a.scheduler.Stop()
		a.armedFor, a.deniedTo = 0, participantID
		return nil
	case err != nil:
		return err
	case granted:
		a.armedFor, a.deniedTo = participantID, 0
		a.logger.Info("Reminders armed for session", zap.Int64("participant_id", participantID))
	}
	return nil
}

func (a *Agent) hasArmedSlot() bool {
	for _, p := range a.scheduler.Pending() {
		if p.State == StateArmed {
			return true
		}
	}
	return false
}

// Run 按间隔轮询直到 ctx 取消，退出前取消所有提醒
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	defer a.scheduler.Stop()

	a.syncLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Reminder agent shutting down")
			return
		case <-ticker.C:
			a.syncLogged(ctx)
		}
	}
}

func (a *Agent) syncLogged(ctx context.Context) {
	if err := a.Sync(ctx); err != nil && ctx.Err() == nil {
		a.logger.Warn("Failed to sync reminders with session", zap.Error(err))
	}
}
