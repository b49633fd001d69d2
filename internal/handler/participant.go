package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/middleware"
	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/response"
)

// Enroll 报名挑战
// POST /v1/participants
func Enroll(ctx context.Context, c *app.RequestContext) {
	var req dto.EnrollRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participant().Enroll(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// GetProfile 获取参与者资料
// GET /v1/participants/me
func GetProfile(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	result, err := service.Participant().Profile(ctx, participantID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// UpdateSettings 更新提醒开关
// PUT /v1/participants/me/settings
func UpdateSettings(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	var req dto.SettingsRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participant().UpdateSettings(ctx, participantID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeleteAccount 删除账号和全部挑战数据
// DELETE /v1/participants/me
func DeleteAccount(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}
	sessionID, _ := middleware.GetSessionID(ctx, c)

	if err := service.Participant().Delete(ctx, participantID, sessionID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
