package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
// Definition 是可比较的值类型，包装后仍可以用 errors.Is 判断。
type Definition struct {
	Code    string
	Message string
}

// 认证与会话错误。
var (
	Unauthorized        = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidParticipant  = Definition{Code: "INVALID_PARTICIPANT_ID", Message: "Invalid participant ID format"}
	ParticipantNotFound = Definition{Code: "PARTICIPANT_NOT_FOUND", Message: "Participant not found"}
	SessionNotFound     = Definition{Code: "SESSION_NOT_FOUND", Message: "Session not found"}
	InvalidCredentials  = Definition{Code: "INVALID_CREDENTIALS", Message: "Email or password is incorrect"}
	EmailTaken          = Definition{Code: "EMAIL_TAKEN", Message: "Email already registered"}
	RefreshTokenInvalid = Definition{Code: "REFRESH_TOKEN_INVALID", Message: "Refresh token is invalid or expired"}
	InvalidRequest      = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests     = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please try again later"}
)

// 挑战进度错误。
var (
	StoreUnavailable = Definition{Code: "STORE_UNAVAILABLE", Message: "Record store unavailable"}
	ProgressBusy     = Definition{Code: "PROGRESS_BUSY", Message: "Progress evaluation already running"}
)

// 视频提交与审核错误。
var (
	SlotInvalid         = Definition{Code: "SLOT_INVALID", Message: "Slot must be morning or evening"}
	DayInvalid          = Definition{Code: "DAY_INVALID", Message: "Day number out of range"}
	OutsideWindow       = Definition{Code: "OUTSIDE_WINDOW", Message: "Submission outside the slot window"}
	ArtifactNotFound    = Definition{Code: "ARTIFACT_NOT_FOUND", Message: "Submission not found"}
	ReviewStatusInvalid = Definition{Code: "REVIEW_STATUS_INVALID", Message: "Review status must be verified or rejected"}
	ArtifactReviewed    = Definition{Code: "ARTIFACT_ALREADY_REVIEWED", Message: "Submission has already been reviewed"}
)

// 提醒模块错误。
var (
	PermissionDenied = Definition{Code: "PERMISSION_DENIED", Message: "Notification permission denied"}
)

// token 相关错误，不对外暴露错误码。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrParticipantIDNotFound        = stderrors.New("participant id not found in token")
)

// SkipMessageError 表示消息无需处理（重复投递等），消费者直接 ack
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:        Unauthorized,
	InvalidParticipant.Code:  InvalidParticipant,
	ParticipantNotFound.Code: ParticipantNotFound,
	SessionNotFound.Code:     SessionNotFound,
	InvalidCredentials.Code:  InvalidCredentials,
	EmailTaken.Code:          EmailTaken,
	RefreshTokenInvalid.Code: RefreshTokenInvalid,
	InvalidRequest.Code:      InvalidRequest,
	TooManyRequests.Code:     TooManyRequests,
	StoreUnavailable.Code:    StoreUnavailable,
	ProgressBusy.Code:        ProgressBusy,
	SlotInvalid.Code:         SlotInvalid,
	DayInvalid.Code:          DayInvalid,
	OutsideWindow.Code:       OutsideWindow,
	ArtifactNotFound.Code:    ArtifactNotFound,
	ReviewStatusInvalid.Code: ReviewStatusInvalid,
	ArtifactReviewed.Code:    ArtifactReviewed,
	PermissionDenied.Code:    PermissionDenied,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// As 从错误链中取出 Definition
func As(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}
