package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/reminder"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/metrics"
	"github.com/simsta2/modus-klar/pkg/snowflake"
	"github.com/simsta2/modus-klar/utils"
)

var (
	submissionService *SubmissionService
	submissionOnce    sync.Once
)

func Submission() *SubmissionService {
	submissionOnce.Do(func() {
		submissionService = NewSubmissionService(defaultStore(), Progress(), SubmissionOptions{
			Windows: reminder.WindowsFromConfig(&config.Cfg),
		})
	})
	return submissionService
}

// SubmissionOptions 零值使用默认窗口、系统时间和 snowflake ID
type SubmissionOptions struct {
	Now     func() time.Time
	NextID  func() (int64, error)
	Windows []reminder.Window
}

// SubmissionService 接收参与者的视频提交
type SubmissionService struct {
	store    Store
	progress *ProgressService
	windows  []reminder.Window
	now      func() time.Time
	nextID   func() (int64, error)
	logger   *zap.Logger
}

func NewSubmissionService(store Store, progress *ProgressService, opts SubmissionOptions) *SubmissionService {
	if opts.Now == nil {
		opts.Now = progress.now
	}
	if opts.NextID == nil {
		opts.NextID = snowflake.NextID
	}
	if len(opts.Windows) == 0 {
		opts.Windows = reminder.DefaultWindows()
	}

	return &SubmissionService{
		store:    store,
		progress: progress,
		windows:  opts.Windows,
		now:      opts.Now,
		nextID:   opts.NextID,
		logger:   logger.Named("submission"),
	}
}

// Submit 保存一段待审视频。时段必须在窗口内，天号必须是今天对应的挑战日。
func (s *SubmissionService) Submit(ctx context.Context, participantID int64, req dto.SubmitRequest) (*dto.SubmitResponse, error) {
	slot := model.Slot(req.Slot)
	window, ok := reminder.WindowFor(s.windows, slot)
	if !ok {
		return nil, errors.SlotInvalid
	}
	if req.DayNumber < 1 || req.DayNumber > s.progress.Days() {
		return nil, errors.DayInvalid
	}

	now := s.now()
	if !window.Contains(now) {
		return nil, errors.OutsideWindow
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if calendarDay := utils.DaysBetween(p.ChallengeStartDate, now) + 1; req.DayNumber != calendarDay {
		return nil, errors.DayInvalid
	}

	id, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate artifact ID: %w", err)
	}

	artifact := &model.SubmissionArtifact{
		PublicID:      id,
		ParticipantID: participantID,
		DayNumber:     req.DayNumber,
		Slot:          slot,
		Status:        model.SlotPending,
		VideoURL:      req.VideoURL,
		CapturedAt:    now,
	}
	if err := s.store.SubmitArtifact(ctx, artifact, utils.DateOf(now)); err != nil {
		metrics.RecordStoreError(ctx, "submit_artifact")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}

	s.progress.invalidate(ctx, participantID)
	metrics.RecordSubmission(ctx, string(slot))
	s.logger.Info("Submission received",
		zap.Int64("participant_id", participantID),
		zap.Int64("artifact_id", id),
		zap.Int("day_number", req.DayNumber),
		zap.String("slot", string(slot)),
	)

	return &dto.SubmitResponse{
		ArtifactID: strconv.FormatInt(id, 10),
		DayNumber:  artifact.DayNumber,
		Slot:       string(artifact.Slot),
		Status:     artifact.Status.String(),
		CapturedAt: now.Format(time.RFC3339),
	}, nil
}

// List 参与者的视频，最新的在前
func (s *SubmissionService) List(ctx context.Context, participantID int64, limit int) ([]dto.ArtifactResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 60
	}

	artifacts, err := s.store.ListArtifacts(ctx, participantID, limit)
	if err != nil {
		metrics.RecordStoreError(ctx, "list_artifacts")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}

	out := make([]dto.ArtifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		item := dto.ArtifactResponse{
			ArtifactID:      strconv.FormatInt(a.PublicID, 10),
			DayNumber:       a.DayNumber,
			Slot:            string(a.Slot),
			Status:          a.Status.String(),
			VideoURL:        a.VideoURL,
			CapturedAt:      a.CapturedAt.Format(time.RFC3339),
			RejectionReason: a.RejectionReason,
		}
		if a.ReviewedAt != nil {
			item.ReviewedAt = a.ReviewedAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out, nil
}
