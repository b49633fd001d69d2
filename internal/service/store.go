package service

import (
	"context"
	"time"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/internal/progress"
	"github.com/simsta2/modus-klar/internal/repository"
	"github.com/simsta2/modus-klar/storage/database"
)

// Store 服务层使用的记录存储，由 repository.ChallengeRepository 实现
type Store interface {
	CreateParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, participantID int64) (*model.Participant, error)
	GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error)
	SetCurrentDay(ctx context.Context, participantID int64, day int) error
	UpdateNotificationsEnabled(ctx context.Context, participantID int64, enabled bool) error
	DeleteParticipant(ctx context.Context, participantID int64) error
	ListParticipants(ctx context.Context, ids []int64, limit int) ([]model.Participant, error)

	ListDailyRecords(ctx context.Context, participantID int64) ([]model.DailyRecord, error)

	SubmitArtifact(ctx context.Context, artifact *model.SubmissionArtifact, date time.Time) error
	ListArtifacts(ctx context.Context, participantID int64, limit int) ([]model.SubmissionArtifact, error)
	ListArtifactsByStatus(ctx context.Context, status model.SlotStatus, limit int) ([]model.SubmissionArtifact, error)
	ReviewArtifact(ctx context.Context, artifactID int64, review repository.Review) (*model.SubmissionArtifact, error)

	ApplyCommands(ctx context.Context, participantID int64, cmds []progress.Command) error
}

// defaultStore 进程内共享的 gorm 存储
func defaultStore() Store {
	return repository.New(database.DB())
}
