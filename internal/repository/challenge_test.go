package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/progress"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/storage/database"
)

var startDate = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) *ChallengeRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 内存库每个连接相互独立
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func seedParticipant(t *testing.T, r *ChallengeRepository, publicID int64) {
	t.Helper()

	err := r.CreateParticipant(context.Background(), &model.Participant{
		PublicID:           publicID,
		Email:              fmt.Sprintf("p%d@example.com", publicID),
		PasswordHash:       "hash",
		ChallengeStartDate: startDate,
		CurrentDay:         1,
	})
	if err != nil {
		t.Fatalf("seed participant: %v", err)
	}
}

func submit(t *testing.T, r *ChallengeRepository, publicID, participantID int64, day int, slot model.Slot) {
	t.Helper()

	artifact := &model.SubmissionArtifact{
		PublicID:      publicID,
		ParticipantID: participantID,
		DayNumber:     day,
		Slot:          slot,
		Status:        model.SlotPending,
		CapturedAt:    startDate.AddDate(0, 0, day-1).Add(10 * time.Hour),
	}
	if err := r.SubmitArtifact(context.Background(), artifact, startDate.AddDate(0, 0, day-1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestCreateParticipantRejectsDuplicateEmail(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	p := &model.Participant{PublicID: 1, Email: "anna@example.com", PasswordHash: "x", ChallengeStartDate: startDate}
	if err := r.CreateParticipant(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &model.Participant{PublicID: 2, Email: "anna@example.com", PasswordHash: "y", ChallengeStartDate: startDate}
	if err := r.CreateParticipant(ctx, dup); !stderrors.Is(err, errors.EmailTaken) {
		t.Fatalf("expected EmailTaken, got %v", err)
	}

	got, err := r.GetParticipantByEmail(ctx, "anna@example.com")
	if err != nil || got.PublicID != 1 {
		t.Fatalf("unexpected participant %+v, %v", got, err)
	}
	if _, err := r.GetParticipant(ctx, 99); !stderrors.Is(err, errors.ParticipantNotFound) {
		t.Fatalf("expected ParticipantNotFound, got %v", err)
	}
}

func TestSubmitArtifactMarksSlotPending(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotEvening)

	records, err := r.ListDailyRecords(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record per day, got %d", len(records))
	}
	if records[0].MorningStatus != model.SlotPending || records[0].EveningStatus != model.SlotPending {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestReviewArtifactUpdatesOnlyItsSlot(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotEvening)

	reviewedAt := startDate.Add(30 * time.Hour)
	artifact, err := r.ReviewArtifact(ctx, 100, Review{
		Status:     model.SlotVerified,
		Reviewer:   "coach",
		ReviewedAt: reviewedAt,
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if artifact.Status != model.SlotVerified || artifact.ReviewedBy != "coach" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}

	records, _ := r.ListDailyRecords(ctx, 42)
	if records[0].MorningStatus != model.SlotVerified || records[0].EveningStatus != model.SlotPending {
		t.Fatalf("unexpected record %+v", records[0])
	}

	if _, err := r.ReviewArtifact(ctx, 999, Review{Status: model.SlotRejected}); !stderrors.Is(err, errors.ArtifactNotFound) {
		t.Fatalf("expected ArtifactNotFound, got %v", err)
	}
}

func TestListDailyRecordsAscending(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	submit(t, r, 103, 42, 3, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotMorning)
	submit(t, r, 102, 42, 2, model.SlotMorning)

	records, err := r.ListDailyRecords(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, rec := range records {
		if rec.DayNumber != i+1 {
			t.Fatalf("records out of order: %+v", records)
		}
	}
}

func TestApplyResetCommandsIsIdempotent(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	seedParticipant(t, r, 7)

	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotEvening)
	submit(t, r, 102, 42, 2, model.SlotMorning)
	submit(t, r, 200, 7, 1, model.SlotMorning)
	if _, err := r.ReviewArtifact(ctx, 100, Review{Status: model.SlotVerified, ReviewedAt: startDate}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := r.ReviewArtifact(ctx, 101, Review{Status: model.SlotRejected, ReviewedAt: startDate}); err != nil {
		t.Fatalf("review: %v", err)
	}

	today := startDate.AddDate(0, 0, 4)
	cmds := progress.ResetCommands(today)
	for i := 0; i < 2; i++ {
		if err := r.ApplyCommands(ctx, 42, cmds); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	records, _ := r.ListDailyRecords(ctx, 42)
	if len(records) != 0 {
		t.Fatalf("expected records to be cleared, got %d", len(records))
	}

	artifacts, _ := r.ListArtifacts(ctx, 42, 0)
	if len(artifacts) != 1 || artifacts[0].PublicID != 100 {
		t.Fatalf("only the verified artifact survives a reset, got %+v", artifacts)
	}

	p, err := r.GetParticipant(ctx, 42)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.CurrentDay != 1 || p.ChallengeStartDate.Day() != today.Day() {
		t.Fatalf("unexpected participant %+v", p)
	}

	// 其他参与者不受影响
	other, _ := r.ListDailyRecords(ctx, 7)
	if len(other) != 1 {
		t.Fatalf("expected other participant's record to survive, got %d", len(other))
	}
}

func TestApplyRestartKeepsRejected(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotEvening)
	if _, err := r.ReviewArtifact(ctx, 100, Review{Status: model.SlotRejected, ReviewedAt: startDate}); err != nil {
		t.Fatalf("review: %v", err)
	}

	if err := r.ApplyCommands(ctx, 42, progress.RestartCommands(startDate.AddDate(0, 0, 30))); err != nil {
		t.Fatalf("apply: %v", err)
	}

	artifacts, _ := r.ListArtifacts(ctx, 42, 0)
	if len(artifacts) != 1 || artifacts[0].Status != model.SlotRejected {
		t.Fatalf("restart deletes only pending artifacts, got %+v", artifacts)
	}
}

func TestApplyCommandsRejectsUnknownKind(t *testing.T) {
	r := setupRepo(t)
	seedParticipant(t, r, 42)

	cmds := []progress.Command{
		{Kind: progress.CommandDeleteDailyRecords},
		{Kind: progress.CommandKind("drop_everything")},
	}
	if err := r.ApplyCommands(context.Background(), 42, cmds); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestDeleteParticipantRemovesEverything(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	submit(t, r, 100, 42, 1, model.SlotMorning)

	if err := r.DeleteParticipant(ctx, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetParticipant(ctx, 42); !stderrors.Is(err, errors.ParticipantNotFound) {
		t.Fatalf("expected participant to be gone, got %v", err)
	}
	if records, _ := r.ListDailyRecords(ctx, 42); len(records) != 0 {
		t.Fatalf("expected records to be gone")
	}
	if artifacts, _ := r.ListArtifacts(ctx, 42, 0); len(artifacts) != 0 {
		t.Fatalf("expected artifacts to be gone")
	}
	if err := r.DeleteParticipant(ctx, 42); !stderrors.Is(err, errors.ParticipantNotFound) {
		t.Fatalf("second delete: expected ParticipantNotFound, got %v", err)
	}
}

func TestUpdateNotificationsEnabled(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	if err := r.UpdateNotificationsEnabled(ctx, 42, true); err != nil {
		t.Fatal(err)
	}
	p, _ := r.GetParticipant(ctx, 42)
	if !p.NotificationsEnabled {
		t.Fatalf("expected notifications to be enabled")
	}
	if err := r.UpdateNotificationsEnabled(ctx, 99, true); !stderrors.Is(err, errors.ParticipantNotFound) {
		t.Fatalf("expected ParticipantNotFound, got %v", err)
	}
}

func TestReviewArtifactOnlyOnce(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	submit(t, r, 100, 42, 1, model.SlotMorning)

	if _, err := r.ReviewArtifact(ctx, 100, Review{Status: model.SlotVerified, ReviewedAt: startDate}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := r.ReviewArtifact(ctx, 100, Review{Status: model.SlotRejected, ReviewedAt: startDate})
	if !stderrors.Is(err, errors.ArtifactReviewed) {
		t.Fatalf("expected ArtifactReviewed, got %v", err)
	}

	records, _ := r.ListDailyRecords(ctx, 42)
	if records[0].MorningStatus != model.SlotVerified {
		t.Fatalf("second review must not change the record, got %+v", records[0])
	}
	artifacts, _ := r.ListArtifacts(ctx, 42, 0)
	if artifacts[0].Status != model.SlotVerified || artifacts[0].RejectionReason != "" {
		t.Fatalf("second review must not change the artifact, got %+v", artifacts[0])
	}
}

func TestReviewAfterResetKeepsNewCycleEmpty(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 42, 1, model.SlotEvening)
	submit(t, r, 200, 42, 2, model.SlotMorning)
	for _, id := range []int64{100, 101, 200} {
		if _, err := r.ReviewArtifact(ctx, id, Review{Status: model.SlotVerified, ReviewedAt: startDate}); err != nil {
			t.Fatalf("review %d: %v", id, err)
		}
	}

	today := startDate.AddDate(0, 0, 5)
	if err := r.ApplyCommands(ctx, 42, progress.ResetCommands(today)); err != nil {
		t.Fatalf("apply reset: %v", err)
	}

	// 重置后保留下来的已审核视频不能再次审核
	if _, err := r.ReviewArtifact(ctx, 200, Review{Status: model.SlotVerified, ReviewedAt: today}); !stderrors.Is(err, errors.ArtifactReviewed) {
		t.Fatalf("expected ArtifactReviewed, got %v", err)
	}

	records, _ := r.ListDailyRecords(ctx, 42)
	if len(records) != 0 {
		t.Fatalf("new cycle must start without records, got %+v", records)
	}
	result := progress.NewEvaluator(0).Evaluate(records, today, today)
	if result.ResetRequired {
		t.Fatalf("fresh cycle must not reset, got %+v", result)
	}
}

func TestReviewDoesNotCreateDailyRecord(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	submit(t, r, 100, 42, 3, model.SlotMorning)

	// 每日记录被清除，但待审视频仍在
	if err := r.ApplyCommands(ctx, 42, []progress.Command{{Kind: progress.CommandDeleteDailyRecords}}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	artifact, err := r.ReviewArtifact(ctx, 100, Review{Status: model.SlotVerified, ReviewedAt: startDate})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if artifact.Status != model.SlotVerified {
		t.Fatalf("artifact should still be reviewed, got %+v", artifact)
	}
	if records, _ := r.ListDailyRecords(ctx, 42); len(records) != 0 {
		t.Fatalf("review must only update existing records, got %+v", records)
	}
}

func TestSubmitArtifactRefreshesDate(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)

	first := startDate
	second := startDate.AddDate(0, 0, 1)

	morning := &model.SubmissionArtifact{PublicID: 100, ParticipantID: 42, DayNumber: 1,
		Slot: model.SlotMorning, Status: model.SlotPending, CapturedAt: first}
	if err := r.SubmitArtifact(ctx, morning, first); err != nil {
		t.Fatalf("submit morning: %v", err)
	}
	evening := &model.SubmissionArtifact{PublicID: 101, ParticipantID: 42, DayNumber: 1,
		Slot: model.SlotEvening, Status: model.SlotPending, CapturedAt: second}
	if err := r.SubmitArtifact(ctx, evening, second); err != nil {
		t.Fatalf("submit evening: %v", err)
	}

	records, _ := r.ListDailyRecords(ctx, 42)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if got := records[0].Date.Format("2006-01-02"); got != second.Format("2006-01-02") {
		t.Fatalf("date should follow the last write, got %s", got)
	}
	if records[0].MorningStatus != model.SlotPending {
		t.Fatalf("other slot must be kept, got %+v", records[0])
	}
}

func TestListArtifactsByStatus(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	seedParticipant(t, r, 42)
	seedParticipant(t, r, 7)

	submit(t, r, 102, 42, 2, model.SlotMorning)
	submit(t, r, 100, 42, 1, model.SlotMorning)
	submit(t, r, 101, 7, 1, model.SlotEvening)
	if _, err := r.ReviewArtifact(ctx, 101, Review{Status: model.SlotVerified, ReviewedAt: startDate}); err != nil {
		t.Fatalf("review: %v", err)
	}

	pending, err := r.ListArtifactsByStatus(ctx, model.SlotPending, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 2 || pending[0].PublicID != 100 || pending[1].PublicID != 102 {
		t.Fatalf("expected pending artifacts oldest first, got %+v", pending)
	}

	limited, _ := r.ListArtifactsByStatus(ctx, model.SlotPending, 1)
	if len(limited) != 1 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}

	verified, _ := r.ListArtifactsByStatus(ctx, model.SlotVerified, 0)
	if len(verified) != 1 || verified[0].ParticipantID != 7 {
		t.Fatalf("unexpected verified artifacts %+v", verified)
	}
}

func TestListParticipants(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		seedParticipant(t, r, id)
	}

	all, err := r.ListParticipants(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(all))
	}

	some, _ := r.ListParticipants(ctx, []int64{1, 3, 99}, 0)
	if len(some) != 2 {
		t.Fatalf("expected filtered participants, got %+v", some)
	}
	for _, p := range some {
		if p.PublicID == 2 {
			t.Fatalf("participant 2 was not requested")
		}
	}

	if limited, _ := r.ListParticipants(ctx, nil, 2); len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
}
