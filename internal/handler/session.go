package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/response"
)

// Login 邮箱密码登录，建立新会话
// POST /v1/sessions
func Login(ctx context.Context, c *app.RequestContext) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Participant().Login(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// Logout 结束会话，之后该会话上的提醒不再展示
// DELETE /v1/sessions/:session_id
func Logout(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Error(ctx, c, errors.SessionNotFound)
		return
	}

	if err := service.Participant().Logout(ctx, participantID, sessionID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	if req.RefreshToken == "" {
		response.Error(ctx, c, errors.RefreshTokenInvalid)
		return
	}

	result, err := service.Participant().Refresh(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
