package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/pkg/errors"
)

func sequentialIDs(start int64) func() (int64, error) {
	next := start
	return func() (int64, error) {
		next++
		return next, nil
	}
}

func newSubmissionFixture(t *testing.T, now func() time.Time) (*SubmissionService, *ReviewService, *memStore) {
	t.Helper()

	progressSvc, store := newProgressFixture(t, now)
	submissions := NewSubmissionService(store, progressSvc, SubmissionOptions{
		Now:    now,
		NextID: sequentialIDs(1000),
	})
	return submissions, NewReviewService(store, progressSvc), store
}

func TestSubmitRecordsPendingSlot(t *testing.T) {
	svc, _, store := newSubmissionFixture(t, fixedNow(2, 10, 30))

	resp, err := svc.Submit(context.Background(), participantID, dto.SubmitRequest{
		Slot:      "morning",
		DayNumber: 3,
		VideoURL:  "https://videos.example.com/1001.webm",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.ArtifactID != "1001" || resp.Status != "pending" || resp.DayNumber != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}

	records, _ := store.ListDailyRecords(context.Background(), participantID)
	if len(records) != 1 || records[0].MorningStatus != model.SlotPending || records[0].EveningStatus != model.SlotAbsent {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name string
		now  func() time.Time
		req  dto.SubmitRequest
		want error
	}{
		{name: "unknown slot", now: fixedNow(0, 10, 0), req: dto.SubmitRequest{Slot: "noon", DayNumber: 1}, want: errors.SlotInvalid},
		{name: "day zero", now: fixedNow(0, 10, 0), req: dto.SubmitRequest{Slot: "morning", DayNumber: 0}, want: errors.DayInvalid},
		{name: "beyond challenge", now: fixedNow(0, 10, 0), req: dto.SubmitRequest{Slot: "morning", DayNumber: 31}, want: errors.DayInvalid},
		{name: "before window", now: fixedNow(0, 8, 59), req: dto.SubmitRequest{Slot: "morning", DayNumber: 1}, want: errors.OutsideWindow},
		{name: "window end is exclusive", now: fixedNow(0, 12, 0), req: dto.SubmitRequest{Slot: "morning", DayNumber: 1}, want: errors.OutsideWindow},
		{name: "evening slot in the morning", now: fixedNow(0, 10, 0), req: dto.SubmitRequest{Slot: "evening", DayNumber: 1}, want: errors.OutsideWindow},
		{name: "not today's day", now: fixedNow(4, 21, 0), req: dto.SubmitRequest{Slot: "evening", DayNumber: 2}, want: errors.DayInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, store := newSubmissionFixture(t, tc.now)

			_, err := svc.Submit(context.Background(), participantID, tc.req)
			if !stderrors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if artifacts, _ := store.ListArtifacts(context.Background(), participantID, 0); len(artifacts) != 0 {
				t.Fatalf("rejected submission must not be stored")
			}
		})
	}
}

func TestReviewRejectionResetsChallenge(t *testing.T) {
	submissions, reviews, store := newSubmissionFixture(t, fixedNow(1, 21, 0))
	ctx := context.Background()
	store.setRecord(participantID, 1, model.SlotVerified, model.SlotVerified)

	resp, err := submissions.Submit(ctx, participantID, dto.SubmitRequest{Slot: "evening", DayNumber: 2})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	id := int64(1001)
	review, err := reviews.Review(ctx, id, dto.ReviewRequest{Status: "rejected", Reviewer: "coach", RejectionReason: "no device visible"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !review.WasReset || review.WasRestarted || review.ArtifactID != resp.ArtifactID {
		t.Fatalf("unexpected review %+v", review)
	}

	records, _ := store.ListDailyRecords(ctx, participantID)
	if len(records) != 0 {
		t.Fatalf("expected records to be cleared, got %+v", records)
	}
	p, _ := store.GetParticipant(ctx, participantID)
	if !p.ChallengeStartDate.Equal(time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected restart from today, got %v", p.ChallengeStartDate)
	}
}

func TestReviewLastDayRestarts(t *testing.T) {
	_, reviews, store := newSubmissionFixture(t, fixedNow(29, 21, 0))
	ctx := context.Background()
	for day := 1; day < 30; day++ {
		store.setRecord(participantID, day, model.SlotVerified, model.SlotVerified)
	}
	store.setRecord(participantID, 30, model.SlotVerified, model.SlotPending)
	store.artifacts[5000] = &model.SubmissionArtifact{
		PublicID:      5000,
		ParticipantID: participantID,
		DayNumber:     30,
		Slot:          model.SlotEvening,
		Status:        model.SlotPending,
	}

	review, err := reviews.Review(ctx, 5000, dto.ReviewRequest{Status: "verified", Reviewer: "coach"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !review.WasRestarted || review.WasReset {
		t.Fatalf("expected restart, got %+v", review)
	}

	artifacts, _ := store.ListArtifacts(ctx, participantID, 0)
	if len(artifacts) != 1 || artifacts[0].Status != model.SlotVerified {
		t.Fatalf("verified artifacts survive a restart, got %+v", artifacts)
	}
}

func TestReviewVerifiedMidChallenge(t *testing.T) {
	_, reviews, store := newSubmissionFixture(t, fixedNow(0, 10, 0))
	store.artifacts[7] = &model.SubmissionArtifact{
		PublicID:      7,
		ParticipantID: participantID,
		DayNumber:     1,
		Slot:          model.SlotMorning,
		Status:        model.SlotPending,
	}

	review, err := reviews.Review(context.Background(), 7, dto.ReviewRequest{Status: "verified"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if review.WasReset || review.WasRestarted || store.appliedCount() != 0 {
		t.Fatalf("unexpected mutation %+v", review)
	}
}

func TestReviewRejectsUnknownStatus(t *testing.T) {
	_, reviews, _ := newSubmissionFixture(t, fixedNow(0, 10, 0))

	if _, err := reviews.Review(context.Background(), 7, dto.ReviewRequest{Status: "pending"}); !stderrors.Is(err, errors.ReviewStatusInvalid) {
		t.Fatalf("expected ReviewStatusInvalid, got %v", err)
	}
	if _, err := reviews.Review(context.Background(), 7, dto.ReviewRequest{Status: "verified"}); !stderrors.Is(err, errors.ArtifactNotFound) {
		t.Fatalf("expected ArtifactNotFound, got %v", err)
	}
}

func TestReviewTwiceConflicts(t *testing.T) {
	submissions, reviews, store := newSubmissionFixture(t, fixedNow(0, 10, 0))
	ctx := context.Background()

	if _, err := submissions.Submit(ctx, participantID, dto.SubmitRequest{Slot: "morning", DayNumber: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := reviews.Review(ctx, 1001, dto.ReviewRequest{Status: "verified", Reviewer: "coach"}); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := reviews.Review(ctx, 1001, dto.ReviewRequest{Status: "rejected", Reviewer: "coach"})
	if !stderrors.Is(err, errors.ArtifactReviewed) {
		t.Fatalf("expected ArtifactReviewed, got %v", err)
	}
	if store.appliedCount() != 0 {
		t.Fatalf("a refused review must not reset the challenge")
	}
	records, _ := store.ListDailyRecords(ctx, participantID)
	if len(records) != 1 || records[0].MorningStatus != model.SlotVerified {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestPendingReviewsCarryParticipant(t *testing.T) {
	_, reviews, store := newSubmissionFixture(t, fixedNow(0, 10, 0))
	store.addParticipant(model.Participant{PublicID: 7, Email: "ben@example.com", Name: "Ben", ChallengeStartDate: challengeStart})

	store.artifacts[11] = &model.SubmissionArtifact{PublicID: 11, ParticipantID: 7, DayNumber: 1,
		Slot: model.SlotEvening, Status: model.SlotPending, CapturedAt: challengeStart.Add(21 * time.Hour)}
	store.artifacts[10] = &model.SubmissionArtifact{PublicID: 10, ParticipantID: participantID, DayNumber: 1,
		Slot: model.SlotMorning, Status: model.SlotPending, CapturedAt: challengeStart.Add(10 * time.Hour)}
	store.artifacts[12] = &model.SubmissionArtifact{PublicID: 12, ParticipantID: participantID, DayNumber: 1,
		Slot: model.SlotEvening, Status: model.SlotVerified, CapturedAt: challengeStart.Add(20 * time.Hour)}

	pending, err := reviews.Pending(context.Background(), 20)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending artifacts, got %+v", pending)
	}
	if pending[0].ArtifactID != "10" || pending[0].ParticipantEmail != "anna@example.com" {
		t.Fatalf("unexpected first item %+v", pending[0])
	}
	if pending[1].ArtifactID != "11" || pending[1].ParticipantName != "Ben" {
		t.Fatalf("unexpected second item %+v", pending[1])
	}
}

func TestPendingReviewsStoreFailure(t *testing.T) {
	_, reviews, store := newSubmissionFixture(t, fixedNow(0, 10, 0))
	store.readErr = stderrors.New("connection refused")

	if _, err := reviews.Pending(context.Background(), 20); !stderrors.Is(err, errors.StoreUnavailable) {
		t.Fatalf("expected StoreUnavailable, got %v", err)
	}
	if _, err := reviews.Participants(context.Background(), 20); !stderrors.Is(err, errors.StoreUnavailable) {
		t.Fatalf("expected StoreUnavailable, got %v", err)
	}
}

func TestReviewerParticipantListing(t *testing.T) {
	_, reviews, store := newSubmissionFixture(t, fixedNow(3, 10, 0))
	store.addParticipant(model.Participant{PublicID: 7, Email: "ben@example.com", ChallengeStartDate: challengeStart, CurrentDay: 4})

	list, err := reviews.Participants(context.Background(), 20)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 participants, got %+v", list)
	}
	for _, p := range list {
		if p.ParticipantID == "7" && (p.Email != "ben@example.com" || p.CurrentDay != 4) {
			t.Fatalf("unexpected overview %+v", p)
		}
	}

	if limited, _ := reviews.Participants(context.Background(), 1); len(limited) != 1 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
}
