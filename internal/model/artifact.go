package model

import "time"

// SubmissionArtifact 一次视频提交
type SubmissionArtifact struct {
	BaseModel
	PublicID        int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	ParticipantID   int64      `gorm:"not null;index:idx_artifacts_participant_status" json:"participant_id"`
	DayNumber       int        `gorm:"not null" json:"day_number"`
	Slot            Slot       `gorm:"type:varchar(16);not null" json:"slot"`
	Status          SlotStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_artifacts_participant_status" json:"status"`
	VideoURL        string     `gorm:"type:text;not null;default:''" json:"video_url"`
	CapturedAt      time.Time  `gorm:"not null" json:"captured_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      string     `gorm:"type:varchar(128);not null;default:''" json:"reviewed_by,omitempty"`
	RejectionReason string     `gorm:"type:text;not null;default:''" json:"rejection_reason,omitempty"`
}

// TableName 指定表名
func (SubmissionArtifact) TableName() string {
	return "submission_artifacts"
}
