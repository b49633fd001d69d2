package model

import "time"

// DailyRecord 每个参与者每个挑战日一条，由提交和审核结果聚合而来
type DailyRecord struct {
	BaseModel
	ParticipantID int64      `gorm:"not null;uniqueIndex:idx_daily_records_participant_day" json:"participant_id"`
	DayNumber     int        `gorm:"not null;uniqueIndex:idx_daily_records_participant_day" json:"day_number"`
	MorningStatus SlotStatus `gorm:"type:varchar(16);not null;default:''" json:"morning_status"`
	EveningStatus SlotStatus `gorm:"type:varchar(16);not null;default:''" json:"evening_status"`
	Date          time.Time  `gorm:"type:date;not null" json:"date"`
}

// TableName 指定表名
func (DailyRecord) TableName() string {
	return "daily_records"
}

// Status 返回指定时段的状态
func (r DailyRecord) Status(slot Slot) SlotStatus {
	if slot == SlotMorning {
		return r.MorningStatus.Normalize()
	}
	return r.EveningStatus.Normalize()
}

// SetStatus 修改指定时段的状态
func (r *DailyRecord) SetStatus(slot Slot, status SlotStatus) {
	if slot == SlotMorning {
		r.MorningStatus = status
		return
	}
	r.EveningStatus = status
}

// FullyVerified 两个时段都已通过审核
func (r DailyRecord) FullyVerified() bool {
	return r.Status(SlotMorning) == SlotVerified && r.Status(SlotEvening) == SlotVerified
}

func (r DailyRecord) HasRejected() bool {
	return r.Status(SlotMorning) == SlotRejected || r.Status(SlotEvening) == SlotRejected
}

func (r DailyRecord) HasPending() bool {
	return r.Status(SlotMorning) == SlotPending || r.Status(SlotEvening) == SlotPending
}

// HasVerified 至少一个时段已通过
func (r DailyRecord) HasVerified() bool {
	return r.Status(SlotMorning) == SlotVerified || r.Status(SlotEvening) == SlotVerified
}
