package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/model/dto"
	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/response"
)

// ReviewSubmission 审核方给出 verified 或 rejected
// POST /v1/reviews/:artifact_id
func ReviewSubmission(ctx context.Context, c *app.RequestContext) {
	artifactID, err := strconv.ParseInt(c.Param("artifact_id"), 10, 64)
	if err != nil || artifactID <= 0 {
		response.Error(ctx, c, errors.ArtifactNotFound)
		return
	}

	var req dto.ReviewRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Review().Review(ctx, artifactID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ListPendingReviews 待审视频，最早录制的在前
// GET /v1/reviews/pending?limit=20
func ListPendingReviews(ctx context.Context, c *app.RequestContext) {
	limit := parseLimit(c.Query("limit"))
	result, err := service.Review().Pending(ctx, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{
		"limit": limit,
		"count": len(result),
	})
}

// ListParticipants 审核方查看参与者
// GET /v1/reviews/participants?limit=20
func ListParticipants(ctx context.Context, c *app.RequestContext) {
	limit := parseLimit(c.Query("limit"))
	result, err := service.Review().Participants(ctx, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{
		"limit": limit,
		"count": len(result),
	})
}
