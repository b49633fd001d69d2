package model

import "time"

// Participant 挑战参与者
// 其余表中的 participant_id 均指向 PublicID
type Participant struct {
	BaseModel
	PublicID             int64     `gorm:"uniqueIndex;not null" json:"public_id"`
	Email                string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash         string    `gorm:"type:varchar(255);not null" json:"-"`
	Name                 string    `gorm:"type:varchar(64);not null;default:''" json:"name"`
	ChallengeStartDate   time.Time `gorm:"type:date;not null" json:"challenge_start_date"`
	CurrentDay           int       `gorm:"not null;default:1" json:"current_day"`
	NotificationsEnabled bool      `gorm:"not null;default:false" json:"notifications_enabled"`
}

// TableName 指定表名
func (Participant) TableName() string {
	return "participants"
}
