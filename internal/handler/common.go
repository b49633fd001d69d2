package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/middleware"
	"github.com/simsta2/modus-klar/pkg/errors"
	"github.com/simsta2/modus-klar/pkg/response"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// currentParticipant 取出已认证的参与者 ID，失败时已经写入 401
func currentParticipant(ctx context.Context, c *app.RequestContext) (int64, bool) {
	participantID, ok := middleware.GetParticipantID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return 0, false
	}
	return participantID, true
}

// parseLimit 解析 ?limit=，超出范围时取默认值或上限
func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
