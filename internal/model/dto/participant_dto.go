package dto

// EnrollRequest 报名挑战
type EnrollRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	Name                 string `json:"name"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// ParticipantResponse 参与者信息
type ParticipantResponse struct {
	ParticipantID        string `json:"participant_id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	ChallengeStartDate   string `json:"challenge_start_date"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// LoginRequest 建立会话
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse 会话与 token
type SessionResponse struct {
	Participant  ParticipantResponse `json:"participant"`
	SessionID    string              `json:"session_id"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	ExpiresIn    int                 `json:"expires_in"`
}

// RefreshTokenRequest 刷新 token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ReminderResponse 收件箱中的一条提醒
type ReminderResponse struct {
	Slot    string `json:"slot"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	FiredAt string `json:"fired_at"`
}

// SettingsRequest 修改参与者设置
type SettingsRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
}

// ParticipantOverview 审核方看到的参与者列表项
type ParticipantOverview struct {
	ParticipantResponse
	CurrentDay int    `json:"current_day"`
	EnrolledAt string `json:"enrolled_at"`
}
