package dto

// SlotStatusesDTO 当前挑战日两个时段的状态
type SlotStatusesDTO struct {
	Morning string `json:"morning"`
	Evening string `json:"evening"`
}

// ProgressResponse 进度评估结果
type ProgressResponse struct {
	ChallengeStartDate string          `json:"challenge_start_date"`
	Today              SlotStatusesDTO `json:"today"`
	CurrentStreak      int             `json:"current_streak"`
	CurrentDay         int             `json:"current_day"`
	ChallengeDays      int             `json:"challenge_days"`
	WasReset           bool            `json:"was_reset"`
	WasRestarted       bool            `json:"was_restarted"`
	EvaluatedAt        string          `json:"evaluated_at"`
}

// StatsResponse 参与者统计
type StatsResponse struct {
	TotalDays     int     `json:"total_days"`
	CompletedDays float64 `json:"completed_days"`
	CurrentStreak int     `json:"current_streak"`
	SuccessRate   float64 `json:"success_rate"`
}
