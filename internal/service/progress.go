package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/cache"
	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/progress"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/metrics"
	"github.com/simsta2/modus-klar/utils"
)

var (
	progressService *ProgressService
	progressOnce    sync.Once
)

func Progress() *ProgressService {
	progressOnce.Do(func() {
		progressService = NewProgressService(defaultStore(), ProgressOptions{
			Days:    config.Cfg.ChallengeDays,
			Breaker: cache.StoreBreaker,
		})
	})
	return progressService
}

// ProgressOptions 零值使用默认天数、系统时间和独立的熔断器
type ProgressOptions struct {
	Now     func() time.Time
	Breaker *cache.CircuitBreaker
	Days    int
	LockTTL time.Duration
}

// ProgressService 读取记录、评估进度并执行评估得出的变更。
// 同一参与者的评估通过 Redis 锁串行化。
type ProgressService struct {
	store     Store
	evaluator *progress.Evaluator
	breaker   *cache.CircuitBreaker
	now       func() time.Time
	lockTTL   time.Duration
	logger    *zap.Logger
}

func NewProgressService(store Store, opts ProgressOptions) *ProgressService {
	if opts.Now == nil {
		loc := config.Cfg.Location()
		opts.Now = func() time.Time { return time.Now().In(loc) }
	}
	if opts.Breaker == nil {
		opts.Breaker = cache.NewCircuitBreaker("record_store", 5, 30*time.Second)
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}

	return &ProgressService{
		store:     store,
		evaluator: progress.NewEvaluator(opts.Days),
		breaker:   opts.Breaker,
		now:       opts.Now,
		lockTTL:   opts.LockTTL,
		logger:    logger.Named("progress"),
	}
}

// Days 一轮挑战的天数
func (s *ProgressService) Days() int {
	return s.evaluator.Days()
}

type loaded struct {
	participant *model.Participant
	records     []model.DailyRecord
}

// read 在熔断器保护下读取参与者和记录；参与者不存在不算存储故障
func (s *ProgressService) read(ctx context.Context, participantID int64) (*loaded, error) {
	var (
		out      loaded
		notFound error
	)

	err := s.breaker.Call(ctx, func() error {
		p, err := s.store.GetParticipant(ctx, participantID)
		if err != nil {
			if stderrors.Is(err, errors.ParticipantNotFound) {
				notFound = err
				return nil
			}
			return err
		}

		records, err := s.store.ListDailyRecords(ctx, participantID)
		if err != nil {
			return err
		}

		out.participant = p
		out.records = records
		return nil
	})
	if notFound != nil {
		return nil, notFound
	}
	if err != nil {
		metrics.RecordStoreError(ctx, "read_progress")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}
	return &out, nil
}

// Load 评估参与者的当前进度；需要重置或重新开始时在一个事务中执行变更。
// 读取失败时不做任何修改。
func (s *ProgressService) Load(ctx context.Context, participantID int64) (*dto.ProgressResponse, error) {
	start := time.Now()
	lockKey := cache.ProgressLockKey(participantID)

	token, ok, err := cache.TryLock(ctx, lockKey, s.lockTTL)
	switch {
	case err != nil:
		// 变更本身是幂等的，锁不可用时继续评估
		s.logger.Warn("Failed to acquire progress lock, evaluating without it",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
	case !ok:
		return nil, errors.ProgressBusy
	default:
		defer func() {
			if err := cache.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.logger.Warn("Failed to release progress lock",
					zap.Int64("participant_id", participantID),
					zap.Error(err),
				)
			}
		}()
	}

	data, err := s.read(ctx, participantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startDate := data.participant.ChallengeStartDate
	result := s.evaluator.Evaluate(data.records, startDate, now)

	outcome := metrics.OutcomeSteady
	if result.NeedsMutation() {
		if err := s.store.ApplyCommands(ctx, participantID, result.Commands); err != nil {
			metrics.RecordStoreError(ctx, "apply_commands")
			return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
		}
		startDate = utils.DateOf(now)

		if result.ResetRequired {
			outcome = metrics.OutcomeReset
		} else {
			outcome = metrics.OutcomeRestart
		}
		s.logger.Info("Challenge progress mutated",
			zap.Int64("participant_id", participantID),
			zap.String("outcome", outcome),
			zap.Int("records", len(data.records)),
		)
	} else if data.participant.CurrentDay != result.CurrentDay {
		if err := s.store.SetCurrentDay(ctx, participantID, result.CurrentDay); err != nil {
			s.logger.Warn("Failed to persist current day",
				zap.Int64("participant_id", participantID),
				zap.Int("current_day", result.CurrentDay),
				zap.Error(err),
			)
		}
	}

	resp := &dto.ProgressResponse{
		ChallengeStartDate: utils.FormatDate(startDate),
		Today: dto.SlotStatusesDTO{
			Morning: result.TodaySlots.Morning.String(),
			Evening: result.TodaySlots.Evening.String(),
		},
		CurrentStreak: result.CurrentStreak,
		CurrentDay:    result.CurrentDay,
		ChallengeDays: s.evaluator.Days(),
		WasReset:      result.ResetRequired,
		WasRestarted:  result.RestartRequired,
		EvaluatedAt:   now.Format(time.RFC3339),
	}

	snapshot := &cache.ProgressSnapshot{
		EvaluatedAt:        now,
		ChallengeStartDate: resp.ChallengeStartDate,
		MorningStatus:      resp.Today.Morning,
		EveningStatus:      resp.Today.Evening,
		CurrentDay:         resp.CurrentDay,
		CurrentStreak:      resp.CurrentStreak,
	}
	if err := cache.SetProgressSnapshot(ctx, participantID, snapshot); err != nil {
		s.logger.Warn("Failed to cache progress snapshot",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
	}

	metrics.RecordEvaluation(ctx, outcome, time.Since(start).Seconds())
	return resp, nil
}

// LastKnown 返回最近一次成功评估的快照，没有快照时返回 errors.StoreUnavailable
func (s *ProgressService) LastKnown(ctx context.Context, participantID int64) (*dto.ProgressResponse, error) {
	snapshot, err := cache.GetProgressSnapshot(ctx, participantID)
	if err != nil {
		s.logger.Warn("Failed to read progress snapshot",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
		return nil, errors.StoreUnavailable
	}
	if snapshot == nil {
		return nil, errors.StoreUnavailable
	}

	return &dto.ProgressResponse{
		ChallengeStartDate: snapshot.ChallengeStartDate,
		Today: dto.SlotStatusesDTO{
			Morning: snapshot.MorningStatus,
			Evening: snapshot.EveningStatus,
		},
		CurrentStreak: snapshot.CurrentStreak,
		CurrentDay:    snapshot.CurrentDay,
		ChallengeDays: s.evaluator.Days(),
		EvaluatedAt:   snapshot.EvaluatedAt.Format(time.RFC3339),
	}, nil
}

// Stats 参与者统计
func (s *ProgressService) Stats(ctx context.Context, participantID int64) (*dto.StatsResponse, error) {
	data, err := s.read(ctx, participantID)
	if err != nil {
		return nil, err
	}

	stats := progress.Summarize(data.records)
	return &dto.StatsResponse{
		TotalDays:     stats.TotalDays,
		CompletedDays: stats.CompletedDays,
		CurrentStreak: stats.CurrentStreak,
		SuccessRate:   stats.SuccessRate,
	}, nil
}

// applyAndInvalidate 执行审核引发的变更并清掉快照
func (s *ProgressService) applyAndInvalidate(ctx context.Context, participantID int64, cmds []progress.Command) error {
	if err := s.store.ApplyCommands(ctx, participantID, cmds); err != nil {
		metrics.RecordStoreError(ctx, "apply_commands")
		return fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}
	s.invalidate(ctx, participantID)
	return nil
}

func (s *ProgressService) invalidate(ctx context.Context, participantID int64) {
	if err := cache.InvalidateProgressSnapshot(ctx, participantID); err != nil {
		s.logger.Warn("Failed to invalidate progress snapshot",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
	}
}
