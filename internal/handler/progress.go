package handler

import (
	"context"
	stderrors "errors"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/response"
)

// GetProgress 评估并返回当前进度，必要时执行重置或重新开始。
// 记录存储不可用时返回最近一次成功评估的结果，并在 meta 中标记 stale。
// GET /v1/progress
func GetProgress(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	progressService := service.Progress()
	result, err := progressService.Load(ctx, participantID)
	if err == nil {
		response.Success(ctx, c, result)
		return
	}

	if !stderrors.Is(err, errors.StoreUnavailable) {
		response.Error(ctx, c, err)
		return
	}

	// 没有快照时 LastKnown 同样返回 StoreUnavailable
	last, lastErr := progressService.LastKnown(ctx, participantID)
	if lastErr != nil {
		logger.Logger.Warn("Progress unavailable and no snapshot to fall back on",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, last, map[string]interface{}{
		"stale": true,
	})
}

// GetStats 完成天数与成功率
// GET /v1/progress/stats
func GetStats(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	result, err := service.Progress().Stats(ctx, participantID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
