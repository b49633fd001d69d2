// Package reminder 在早晚两个窗口内随机时间提醒参与者录制视频。
//
// 每个时段最多只有一个待触发的定时器。触发时重新读取当前会话的参与者，
// 与布置时一致才发送提醒，随后为同一时段布置第二天的定时器；
// 不一致（已登出或换人）时丢弃提醒，该时段回到 Idle，等待下一次 Initialize。
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/metrics"
	"github.com/simsta2/modus-klar/utils"
)

// PermissionGate 通知权限
type PermissionGate interface {
	RequestPermission(ctx context.Context, participantID int64) (bool, error)
}

// IdentitySource 当前会话登录的参与者，ok=false 表示未登录
type IdentitySource interface {
	CurrentParticipantID(ctx context.Context) (participantID int64, ok bool, err error)
}

// Notifier 展示提醒
type Notifier interface {
	Display(ctx context.Context, n Notification) error
}

// Notification 一条待展示的提醒
type Notification struct {
	FireAt        time.Time
	Slot          model.Slot
	Title         string
	Body          string
	ParticipantID int64
}

// State 单个时段的状态
type State int

const (
	StateIdle State = iota
	StateArmed
	StateFired
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	default:
		return "idle"
	}
}

// Pending 时段的当前状态快照
type Pending struct {
	FireAt        time.Time
	Slot          model.Slot
	State         State
	ParticipantID int64
}

type slotTimer struct {
	fireAt        time.Time
	timer         Timer
	window        Window
	state         State
	participantID int64
	generation    uint64
}

// Options 可选依赖，零值使用系统时钟、全局随机数和默认窗口
type Options struct {
	Clock          Clock
	Random         Random
	Logger         *zap.Logger
	Windows        []Window
	DisplayTimeout time.Duration
}

// Scheduler 持有唯一一组（早、晚）定时器
type Scheduler struct {
	clock    Clock
	rnd      Random
	gate     PermissionGate
	identity IdentitySource
	notifier Notifier
	logger   *zap.Logger

	mu             sync.Mutex
	slots          []*slotTimer
	generation     uint64
	displayTimeout time.Duration
}

func NewScheduler(gate PermissionGate, identity IdentitySource, notifier Notifier, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = NewRealClock(time.Local)
	}
	if opts.Random == nil {
		opts.Random = globalRandom{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("reminder")
	}
	if len(opts.Windows) == 0 {
		opts.Windows = DefaultWindows()
	}
	if opts.DisplayTimeout <= 0 {
		opts.DisplayTimeout = 5 * time.Second
	}

	s := &Scheduler{
		clock:          opts.Clock,
		rnd:            opts.Random,
		gate:           gate,
		identity:       identity,
		notifier:       notifier,
		logger:         opts.Logger,
		displayTimeout: opts.DisplayTimeout,
	}
	for _, w := range opts.Windows {
		s.slots = append(s.slots, &slotTimer{window: w})
	}
	return s
}

// Initialize 请求通知权限，然后取消现有定时器并为每个时段布置一个新的。
// 权限被拒绝时返回 (false, errors.PermissionDenied)，已有定时器保持不变。
func (s *Scheduler) Initialize(ctx context.Context, participantID int64) (bool, error) {
	granted, err := s.gate.RequestPermission(ctx, participantID)
	if err != nil {
		return false, fmt.Errorf("request notification permission: %w", err)
	}
	if !granted {
		s.logger.Info("Notification permission not granted",
			zap.Int64("participant_id", participantID),
		)
		return false, errors.PermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	now := s.clock.Now()
	for _, st := range s.slots {
		s.armLocked(ctx, st, participantID, NextFireAt(st.window, now, s.rnd))
	}
	return true, nil
}

// Stop 取消所有待触发的定时器，可重复调用
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.logger.Debug("Reminders stopped")
}

// Pending 返回各时段的状态
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Pending, 0, len(s.slots))
	for _, st := range s.slots {
		out = append(out, Pending{
			Slot:          st.window.Slot,
			State:         st.state,
			FireAt:        st.fireAt,
			ParticipantID: st.participantID,
		})
	}
	return out
}

func (s *Scheduler) nextGeneration() uint64 {
	s.generation++
	return s.generation
}

func (s *Scheduler) cancelLocked() {
	for _, st := range s.slots {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		// 已经派发但还没拿到锁的回调会因为代数不符被丢弃
		st.generation = s.nextGeneration()
		st.state = StateIdle
		st.fireAt = time.Time{}
	}
}

func (s *Scheduler) armLocked(ctx context.Context, st *slotTimer, participantID int64, fireAt time.Time) {
	generation := s.nextGeneration()
	delay := fireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	st.generation = generation
	st.participantID = participantID
	st.fireAt = fireAt
	st.state = StateArmed

	slot := st.window.Slot
	st.timer = s.clock.AfterFunc(delay, func() {
		s.fire(slot, generation)
	})

	metrics.RecordReminder(ctx, string(slot), metrics.ReminderArmed)
	s.logger.Info("Reminder scheduled",
		zap.String("slot", string(slot)),
		zap.Int64("participant_id", participantID),
		zap.Time("fire_at", fireAt),
	)
}

// fire 在整个过程中持有锁，触发一旦开始就不会被 Stop 或 Initialize 打断
func (s *Scheduler) fire(slot model.Slot, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.slotLocked(slot)
	if st == nil || st.generation != generation || st.state != StateArmed {
		return
	}
	st.state = StateFired
	st.timer = nil

	ctx, cancel := context.WithTimeout(context.Background(), s.displayTimeout)
	defer cancel()

	current, ok, err := s.identity.CurrentParticipantID(ctx)
	if err != nil {
		// 无法确认是否已登出，不展示，但继续保持提醒
		s.logger.Warn("Failed to read session identity, skipping reminder",
			zap.String("slot", string(slot)),
			zap.Int64("participant_id", st.participantID),
			zap.Error(err),
		)
		s.rearmLocked(ctx, st)
		return
	}

	if !ok || current != st.participantID {
		st.state = StateIdle
		st.fireAt = time.Time{}
		metrics.RecordReminder(ctx, string(slot), metrics.ReminderSuppressed)
		s.logger.Info("Reminder suppressed, session identity changed",
			zap.String("slot", string(slot)),
			zap.Int64("armed_for", st.participantID),
			zap.Int64("current", current),
			zap.Bool("logged_in", ok),
		)
		return
	}

	n := notificationFor(slot, st.participantID, st.fireAt)
	if err := s.notifier.Display(ctx, n); err != nil {
		metrics.RecordReminder(ctx, string(slot), metrics.ReminderDisplayFailed)
		s.logger.Error("Failed to display reminder",
			zap.String("slot", string(slot)),
			zap.Int64("participant_id", st.participantID),
			zap.Error(err),
		)
	} else {
		metrics.RecordReminder(ctx, string(slot), metrics.ReminderFired)
	}

	s.rearmLocked(ctx, st)
}

// rearmLocked 布置同一时段第二天的提醒
func (s *Scheduler) rearmLocked(ctx context.Context, st *slotTimer) {
	base := st.fireAt
	if now := s.clock.Now(); now.After(base) {
		base = now
	}
	next := NextFireAt(st.window, st.window.End(utils.DateOf(base)), s.rnd)
	s.armLocked(ctx, st, st.participantID, next)
}

func (s *Scheduler) slotLocked(slot model.Slot) *slotTimer {
	for _, st := range s.slots {
		if st.window.Slot == slot {
			return st
		}
	}
	return nil
}

func notificationFor(slot model.Slot, participantID int64, fireAt time.Time) Notification {
	n := Notification{
		Slot:          slot,
		ParticipantID: participantID,
		FireAt:        fireAt,
	}
	if slot == model.SlotMorning {
		n.Title = "🌅 Morgen-Messung"
		n.Body = "Zeit für Ihre morgendliche Alkoholmessung! Öffnen Sie die App für die Videoaufnahme."
	} else {
		n.Title = "🌙 Abend-Messung"
		n.Body = "Zeit für Ihre abendliche Alkoholmessung! Öffnen Sie die App für die Videoaufnahme."
	}
	return n
}
