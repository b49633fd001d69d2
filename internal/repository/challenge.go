// Package repository 挑战数据的读写，多语句写入都在一个事务里完成。
package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/progress"
	dbotel "github.com/simsta2/modus-klar/pkg/database"
	"github.com/simsta2/modus-klar/pkg/errors"
)

type ChallengeRepository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// ========== Participant ==========

// CreateParticipant 邮箱已存在时返回 errors.EmailTaken
func (r *ChallengeRepository) CreateParticipant(ctx context.Context, p *model.Participant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Participant{}).Where("email = ?", p.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return errors.EmailTaken
		}

		if err := tx.Create(p).Error; err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.EmailTaken
			}
			return fmt.Errorf("failed to create participant: %w", err)
		}
		return nil
	})
	dbotel.RecordTransaction(ctx, "create_participant", err)
	return err
}

func (r *ChallengeRepository) GetParticipant(ctx context.Context, participantID int64) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).Where("public_id = ?", participantID).First(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ParticipantNotFound
		}
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	return &p, nil
}

func (r *ChallengeRepository) GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ParticipantNotFound
		}
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	return &p, nil
}

// ListParticipants 最新报名的在前；ids 非空时只返回这些参与者
func (r *ChallengeRepository) ListParticipants(ctx context.Context, ids []int64, limit int) ([]model.Participant, error) {
	var participants []model.Participant
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if len(ids) > 0 {
		q = q.Where("public_id IN ?", ids)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// SetCurrentDay 只更新展示用的当前日
func (r *ChallengeRepository) SetCurrentDay(ctx context.Context, participantID int64, day int) error {
	err := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("public_id = ?", participantID).
		Update("current_day", day).Error
	if err != nil {
		return fmt.Errorf("failed to update current day: %w", err)
	}
	return nil
}

// ========== DailyRecord ==========

// ListDailyRecords 按天号升序返回
func (r *ChallengeRepository) ListDailyRecords(ctx context.Context, participantID int64) ([]model.DailyRecord, error) {
	var records []model.DailyRecord
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("day_number ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records: %w", err)
	}
	return records, nil
}

// upsertSlotStatus 写入某天某时段的状态并刷新 date，另一个时段保持不变。
// 只在提交时使用，每日记录由提交创建。
func upsertSlotStatus(tx *gorm.DB, participantID int64, dayNumber int, date time.Time, slot model.Slot, status model.SlotStatus) error {
	record := model.DailyRecord{
		ParticipantID: participantID,
		DayNumber:     dayNumber,
		Date:          date,
	}
	record.SetStatus(slot, status)

	column := string(slot) + "_status"
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}, {Name: "day_number"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "date", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily record: %w", err)
	}
	return nil
}

// updateSlotStatus 只修改已存在的每日记录，记录已被重置清除时不做任何事
func updateSlotStatus(tx *gorm.DB, participantID int64, dayNumber int, slot model.Slot, status model.SlotStatus) error {
	err := tx.Model(&model.DailyRecord{}).
		Where("participant_id = ? AND day_number = ?", participantID, dayNumber).
		Update(string(slot)+"_status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update daily record: %w", err)
	}
	return nil
}

// ========== SubmissionArtifact ==========

// SubmitArtifact 保存待审视频，并把对应时段标记为 pending
func (r *ChallengeRepository) SubmitArtifact(ctx context.Context, artifact *model.SubmissionArtifact, date time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(artifact).Error; err != nil {
			return fmt.Errorf("failed to create artifact: %w", err)
		}
		return upsertSlotStatus(tx, artifact.ParticipantID, artifact.DayNumber, date, artifact.Slot, model.SlotPending)
	})
	dbotel.RecordTransaction(ctx, "submit_artifact", err)
	return err
}

func (r *ChallengeRepository) GetArtifact(ctx context.Context, artifactID int64) (*model.SubmissionArtifact, error) {
	var a model.SubmissionArtifact
	err := r.db.WithContext(ctx).Where("public_id = ?", artifactID).First(&a).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ArtifactNotFound
		}
		return nil, fmt.Errorf("failed to query artifact: %w", err)
	}
	return &a, nil
}

// ListArtifacts 最新的在前
func (r *ChallengeRepository) ListArtifacts(ctx context.Context, participantID int64, limit int) ([]model.SubmissionArtifact, error) {
	var artifacts []model.SubmissionArtifact
	q := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("captured_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// ListArtifactsByStatus 审核队列，按录制时间从旧到新
func (r *ChallengeRepository) ListArtifactsByStatus(ctx context.Context, status model.SlotStatus, limit int) ([]model.SubmissionArtifact, error) {
	var artifacts []model.SubmissionArtifact
	q := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("captured_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("failed to list artifacts by status: %w", err)
	}
	return artifacts, nil
}

// Review 审核结果
type Review struct {
	ReviewedAt time.Time
	Status     model.SlotStatus
	Reviewer   string
	Reason     string
}

// ReviewArtifact 更新视频状态，并同步到对应的每日记录
func (r *ChallengeRepository) ReviewArtifact(ctx context.Context, artifactID int64, review Review) (*model.SubmissionArtifact, error) {
	var artifact model.SubmissionArtifact
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ?", artifactID).First(&artifact).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ArtifactNotFound
			}
			return fmt.Errorf("failed to query artifact: %w", err)
		}

		// 只能审核一次，重复审核会把旧周期的结果写进新周期
		if artifact.Status != model.SlotPending {
			return errors.ArtifactReviewed
		}

		reviewedAt := review.ReviewedAt
		artifact.Status = review.Status
		artifact.ReviewedAt = &reviewedAt
		artifact.ReviewedBy = review.Reviewer
		artifact.RejectionReason = review.Reason

		err := tx.Model(&model.SubmissionArtifact{}).
			Where("id = ?", artifact.ID).
			Updates(map[string]interface{}{
				"status":           artifact.Status,
				"reviewed_at":      reviewedAt,
				"reviewed_by":      artifact.ReviewedBy,
				"rejection_reason": artifact.RejectionReason,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update artifact: %w", err)
		}

		return updateSlotStatus(tx, artifact.ParticipantID, artifact.DayNumber, artifact.Slot, review.Status)
	})
	dbotel.RecordTransaction(ctx, "review_artifact", err)
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// ========== Commands ==========

// ApplyCommands 在一个事务中执行评估得出的变更：先删除，最后设置开始日期。
// 重复执行结果相同。
func (r *ChallengeRepository) ApplyCommands(ctx context.Context, participantID int64, cmds []progress.Command) error {
	if len(cmds) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var setStart []progress.Command
		for _, cmd := range cmds {
			switch cmd.Kind {
			case progress.CommandDeleteDailyRecords:
				if err := tx.Where("participant_id = ?", participantID).Delete(&model.DailyRecord{}).Error; err != nil {
					return fmt.Errorf("failed to delete daily records: %w", err)
				}
			case progress.CommandDeleteArtifacts:
				if len(cmd.Statuses) == 0 {
					continue
				}
				statuses := make([]string, 0, len(cmd.Statuses))
				for _, s := range cmd.Statuses {
					statuses = append(statuses, string(s))
				}
				err := tx.Where("participant_id = ? AND status IN ?", participantID, statuses).
					Delete(&model.SubmissionArtifact{}).Error
				if err != nil {
					return fmt.Errorf("failed to delete artifacts: %w", err)
				}
			case progress.CommandSetChallengeStartDate:
				setStart = append(setStart, cmd)
			default:
				return fmt.Errorf("unknown command %q", cmd.Kind)
			}
		}

		for _, cmd := range setStart {
			err := tx.Model(&model.Participant{}).
				Where("public_id = ?", participantID).
				Updates(map[string]interface{}{
					"challenge_start_date": cmd.Date,
					"current_day":          1,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to set challenge start date: %w", err)
			}
		}
		return nil
	})
	dbotel.RecordTransaction(ctx, "apply_commands", err)
	return err
}

// DeleteParticipant 删除参与者及其全部记录和视频
func (r *ChallengeRepository) DeleteParticipant(ctx context.Context, participantID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("participant_id = ?", participantID).Delete(&model.DailyRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete daily records: %w", err)
		}
		if err := tx.Where("participant_id = ?", participantID).Delete(&model.SubmissionArtifact{}).Error; err != nil {
			return fmt.Errorf("failed to delete artifacts: %w", err)
		}
		res := tx.Where("public_id = ?", participantID).Delete(&model.Participant{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete participant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errors.ParticipantNotFound
		}
		return nil
	})
	dbotel.RecordTransaction(ctx, "delete_participant", err)
	return err
}

// UpdateNotificationsEnabled 修改提醒开关
func (r *ChallengeRepository) UpdateNotificationsEnabled(ctx context.Context, participantID int64, enabled bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("public_id = ?", participantID).
		Update("notifications_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update notification setting: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ParticipantNotFound
	}
	return nil
}
