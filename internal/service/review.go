package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/progress"
	"github.com/simsta2/modus-klar/internal/repository"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/metrics"
)

var (
	reviewService *ReviewService
	reviewOnce    sync.Once
)

func Review() *ReviewService {
	reviewOnce.Do(func() {
		reviewService = NewReviewService(defaultStore(), Progress())
	})
	return reviewService
}

// ReviewService 审核视频。被拒立即重置挑战；最后一天两个时段都通过后重新开始。
type ReviewService struct {
	store    Store
	progress *ProgressService
	logger   *zap.Logger
}

func NewReviewService(store Store, progress *ProgressService) *ReviewService {
	return &ReviewService{
		store:    store,
		progress: progress,
		logger:   logger.Named("review"),
	}
}

func (s *ReviewService) Review(ctx context.Context, artifactID int64, req dto.ReviewRequest) (*dto.ReviewResponse, error) {
	status := model.SlotStatus(req.Status)
	if status != model.SlotVerified && status != model.SlotRejected {
		return nil, errors.ReviewStatusInvalid
	}

	now := s.progress.now()
	artifact, err := s.store.ReviewArtifact(ctx, artifactID, repository.Review{
		ReviewedAt: now,
		Status:     status,
		Reviewer:   strings.TrimSpace(req.Reviewer),
		Reason:     strings.TrimSpace(req.RejectionReason),
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordReview(ctx, string(artifact.Slot), string(status))

	resp := &dto.ReviewResponse{
		ArtifactID: strconv.FormatInt(artifactID, 10),
		Status:     status.String(),
	}

	var cmds []progress.Command
	switch status {
	case model.SlotRejected:
		cmds = progress.ResetCommands(now)
		resp.WasReset = true
	case model.SlotVerified:
		if artifact.DayNumber == s.progress.Days() {
			completed, err := s.dayCompleted(ctx, artifact.ParticipantID, artifact.DayNumber)
			if err != nil {
				return nil, err
			}
			if completed {
				cmds = progress.RestartCommands(now)
				resp.WasRestarted = true
			}
		}
	}

	if len(cmds) == 0 {
		s.progress.invalidate(ctx, artifact.ParticipantID)
		return resp, nil
	}

	if err := s.progress.applyAndInvalidate(ctx, artifact.ParticipantID, cmds); err != nil {
		return nil, err
	}
	s.logger.Info("Challenge progress mutated by review",
		zap.Int64("participant_id", artifact.ParticipantID),
		zap.Int64("artifact_id", artifactID),
		zap.Bool("reset", resp.WasReset),
		zap.Bool("restart", resp.WasRestarted),
	)
	return resp, nil
}

func (s *ReviewService) dayCompleted(ctx context.Context, participantID int64, dayNumber int) (bool, error) {
	records, err := s.store.ListDailyRecords(ctx, participantID)
	if err != nil {
		metrics.RecordStoreError(ctx, "list_daily_records")
		return false, errors.StoreUnavailable
	}
	for _, r := range records {
		if r.DayNumber == dayNumber {
			return r.FullyVerified(), nil
		}
	}
	return false, nil
}

// Pending 按录制时间从旧到新返回待审视频
func (s *ReviewService) Pending(ctx context.Context, limit int) ([]dto.PendingReviewResponse, error) {
	artifacts, err := s.store.ListArtifactsByStatus(ctx, model.SlotPending, limit)
	if err != nil {
		metrics.RecordStoreError(ctx, "list_pending_artifacts")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}
	if len(artifacts) == 0 {
		return []dto.PendingReviewResponse{}, nil
	}

	ids := make([]int64, 0, len(artifacts))
	seen := make(map[int64]bool, len(artifacts))
	for _, a := range artifacts {
		if !seen[a.ParticipantID] {
			seen[a.ParticipantID] = true
			ids = append(ids, a.ParticipantID)
		}
	}
	participants, err := s.store.ListParticipants(ctx, ids, 0)
	if err != nil {
		metrics.RecordStoreError(ctx, "list_participants")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}
	byID := make(map[int64]model.Participant, len(participants))
	for _, p := range participants {
		byID[p.PublicID] = p
	}

	out := make([]dto.PendingReviewResponse, 0, len(artifacts))
	for _, a := range artifacts {
		p := byID[a.ParticipantID]
		out = append(out, dto.PendingReviewResponse{
			ArtifactID:       strconv.FormatInt(a.PublicID, 10),
			ParticipantID:    strconv.FormatInt(a.ParticipantID, 10),
			ParticipantEmail: p.Email,
			ParticipantName:  p.Name,
			DayNumber:        a.DayNumber,
			Slot:             string(a.Slot),
			VideoURL:         a.VideoURL,
			CapturedAt:       a.CapturedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// Participants 最新报名的在前
func (s *ReviewService) Participants(ctx context.Context, limit int) ([]dto.ParticipantOverview, error) {
	participants, err := s.store.ListParticipants(ctx, nil, limit)
	if err != nil {
		metrics.RecordStoreError(ctx, "list_participants")
		return nil, fmt.Errorf("%w: %v", errors.StoreUnavailable, err)
	}

	out := make([]dto.ParticipantOverview, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		out = append(out, dto.ParticipantOverview{
			ParticipantResponse: *participantResponse(p),
			CurrentDay:          p.CurrentDay,
			EnrolledAt:          p.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
