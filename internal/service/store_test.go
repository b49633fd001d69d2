package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/progress"
	"github.com/simsta2/modus-klar/internal/repository"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/storage/redis"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	redis.Use(client)
	return mr
}

// memStore 内存实现的 Store
type memStore struct {
	mu           sync.Mutex
	participants map[int64]*model.Participant
	records      map[int64]map[int]model.DailyRecord
	artifacts    map[int64]*model.SubmissionArtifact

	readErr  error
	applyErr error
	applied  [][]progress.Command
}

func newMemStore() *memStore {
	return &memStore{
		participants: make(map[int64]*model.Participant),
		records:      make(map[int64]map[int]model.DailyRecord),
		artifacts:    make(map[int64]*model.SubmissionArtifact),
	}
}

func (m *memStore) addParticipant(p model.Participant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[p.PublicID] = &p
}

func (m *memStore) setRecord(participantID int64, day int, morning, evening model.SlotStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[participantID] == nil {
		m.records[participantID] = make(map[int]model.DailyRecord)
	}
	m.records[participantID][day] = model.DailyRecord{
		ParticipantID: participantID,
		DayNumber:     day,
		MorningStatus: morning,
		EveningStatus: evening,
	}
}

func (m *memStore) CreateParticipant(_ context.Context, p *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.Email == p.Email {
			return errors.EmailTaken
		}
	}
	cp := *p
	m.participants[p.PublicID] = &cp
	return nil
}

func (m *memStore) GetParticipant(_ context.Context, participantID int64) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	p, ok := m.participants[participantID]
	if !ok {
		return nil, errors.ParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetParticipantByEmail(_ context.Context, email string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.ParticipantNotFound
}

func (m *memStore) SetCurrentDay(_ context.Context, participantID int64, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.participants[participantID]; ok {
		p.CurrentDay = day
	}
	return nil
}

func (m *memStore) UpdateNotificationsEnabled(_ context.Context, participantID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[participantID]
	if !ok {
		return errors.ParticipantNotFound
	}
	p.NotificationsEnabled = enabled
	return nil
}

func (m *memStore) DeleteParticipant(_ context.Context, participantID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[participantID]; !ok {
		return errors.ParticipantNotFound
	}
	delete(m.participants, participantID)
	delete(m.records, participantID)
	for id, a := range m.artifacts {
		if a.ParticipantID == participantID {
			delete(m.artifacts, id)
		}
	}
	return nil
}

func (m *memStore) ListDailyRecords(_ context.Context, participantID int64) ([]model.DailyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []model.DailyRecord
	for _, r := range m.records[participantID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (m *memStore) upsertLocked(participantID int64, day int, slot model.Slot, status model.SlotStatus) {
	if m.records[participantID] == nil {
		m.records[participantID] = make(map[int]model.DailyRecord)
	}
	r := m.records[participantID][day]
	r.ParticipantID = participantID
	r.DayNumber = day
	r.SetStatus(slot, status)
	m.records[participantID][day] = r
}

func (m *memStore) SubmitArtifact(_ context.Context, a *model.SubmissionArtifact, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.artifacts[a.PublicID] = &cp
	m.upsertLocked(a.ParticipantID, a.DayNumber, a.Slot, model.SlotPending)
	return nil
}

func (m *memStore) ListArtifacts(_ context.Context, participantID int64, _ int) ([]model.SubmissionArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SubmissionArtifact
	for _, a := range m.artifacts {
		if a.ParticipantID == participantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) ListArtifactsByStatus(_ context.Context, status model.SlotStatus, limit int) ([]model.SubmissionArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []model.SubmissionArtifact
	for _, a := range m.artifacts {
		if a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListParticipants(_ context.Context, ids []int64, limit int) ([]model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []model.Participant
	for id, p := range m.participants {
		if len(ids) > 0 && !wanted[id] {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicID > out[j].PublicID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReviewArtifact(_ context.Context, artifactID int64, review repository.Review) (*model.SubmissionArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[artifactID]
	if !ok {
		return nil, errors.ArtifactNotFound
	}
	if a.Status != model.SlotPending {
		return nil, errors.ArtifactReviewed
	}
	reviewedAt := review.ReviewedAt
	a.Status = review.Status
	a.ReviewedAt = &reviewedAt
	a.ReviewedBy = review.Reviewer
	a.RejectionReason = review.Reason
	if r, ok := m.records[a.ParticipantID][a.DayNumber]; ok {
		r.SetStatus(a.Slot, review.Status)
		m.records[a.ParticipantID][a.DayNumber] = r
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ApplyCommands(_ context.Context, participantID int64, cmds []progress.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, cmds)
	for _, cmd := range cmds {
		switch cmd.Kind {
		case progress.CommandDeleteDailyRecords:
			delete(m.records, participantID)
		case progress.CommandDeleteArtifacts:
			for id, a := range m.artifacts {
				if a.ParticipantID != participantID {
					continue
				}
				for _, s := range cmd.Statuses {
					if a.Status == s {
						delete(m.artifacts, id)
					}
				}
			}
		case progress.CommandSetChallengeStartDate:
			if p, ok := m.participants[participantID]; ok {
				p.ChallengeStartDate = cmd.Date
				p.CurrentDay = 1
			}
		}
	}
	return nil
}

func (m *memStore) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}
