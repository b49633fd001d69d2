package model

// ReminderMessage 提醒消息，由提醒代理发布，worker 写入参与者的提醒收件箱
type ReminderMessage struct {
	MessageID     string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	SessionID     string `json:"session_id"`
	ParticipantID int64  `json:"participant_id"`
	Slot          Slot   `json:"slot"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	FiredAt       string `json:"fired_at"`
}
