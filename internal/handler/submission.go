package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/response"
)

// Submit 提交当日某个时段的视频
// POST /v1/submissions
func Submit(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Submission().Submit(ctx, participantID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// ListSubmissions 最近提交的视频，按录制时间倒序
// GET /v1/submissions?limit=20
func ListSubmissions(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	limit := parseLimit(c.Query("limit"))
	result, err := service.Submission().List(ctx, participantID, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{
		"limit": limit,
		"count": len(result),
	})
}
