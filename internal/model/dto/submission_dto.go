package dto

// SubmitRequest 提交一段视频证明
type SubmitRequest struct {
	Slot      string `json:"slot"`
	DayNumber int    `json:"day_number"`
	VideoURL  string `json:"video_url"`
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	ArtifactID string `json:"artifact_id"`
	DayNumber  int    `json:"day_number"`
	Slot       string `json:"slot"`
	Status     string `json:"status"`
	CapturedAt string `json:"captured_at"`
}

// ReviewRequest 审核一段视频证明
type ReviewRequest struct {
	Status          string `json:"status"`
	Reviewer        string `json:"reviewer"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// ReviewResponse 审核结果
type ReviewResponse struct {
	ArtifactID   string `json:"artifact_id"`
	Status       string `json:"status"`
	WasReset     bool   `json:"was_reset"`
	WasRestarted bool   `json:"was_restarted"`
}

// ArtifactResponse 参与者的一段视频
type ArtifactResponse struct {
	ArtifactID      string `json:"artifact_id"`
	DayNumber       int    `json:"day_number"`
	Slot            string `json:"slot"`
	Status          string `json:"status"`
	VideoURL        string `json:"video_url"`
	CapturedAt      string `json:"captured_at"`
	ReviewedAt      string `json:"reviewed_at,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// PendingReviewResponse 审核队列中的一段视频，带上提交者信息
type PendingReviewResponse struct {
	ArtifactID       string `json:"artifact_id"`
	ParticipantID    string `json:"participant_id"`
	ParticipantEmail string `json:"participant_email"`
	ParticipantName  string `json:"participant_name"`
	DayNumber        int    `json:"day_number"`
	Slot             string `json:"slot"`
	VideoURL         string `json:"video_url"`
	CapturedAt       string `json:"captured_at"`
}
