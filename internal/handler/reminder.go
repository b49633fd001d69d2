package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/simsta2/modus-klar/internal/service"
	"github.com/simsta2/modus-klar/pkg/response"
)

// GetReminderInbox 最近送达的提醒
// GET /v1/reminders/inbox?limit=20
func GetReminderInbox(ctx context.Context, c *app.RequestContext) {
	participantID, ok := currentParticipant(ctx, c)
	if !ok {
		return
	}

	result, err := service.Notification().Inbox(ctx, participantID, parseLimit(c.Query("limit")))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
