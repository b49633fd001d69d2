package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/simsta2/modus-klar/internal/handler"
	"github.com/simsta2/modus-klar/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", func(ctx context.Context, c *app.RequestContext) {
		c.String(consts.StatusOK, "ok")
	})

	v1 := h.Group("/v1")

	// 需要登录且会话有效
	authed := []app.HandlerFunc{
		middleware.AuthMiddleware(),
		middleware.SessionMiddleware(),
		middleware.GeneralRateLimitMiddleware(),
	}

	// 认证相关路由
	auth := v1.Group("/auth", middleware.AuthRateLimitMiddleware())
	{
		auth.POST("/token/refresh", handler.RefreshToken)
	}

	// 参与者
	participants := v1.Group("/participants")
	{
		participants.POST("", middleware.AuthRateLimitMiddleware(), handler.Enroll)

		me := participants.Group("/me", authed...)
		me.GET("", handler.GetProfile)
		me.PUT("/settings", middleware.SettingsRateLimitMiddleware(), handler.UpdateSettings)
		me.DELETE("", handler.DeleteAccount)
	}

	// 会话
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", middleware.AuthRateLimitMiddleware(), handler.Login)
		sessions.DELETE("/:session_id", append(authed, handler.Logout)...)
	}

	// 挑战进度
	progress := v1.Group("/progress", authed...)
	{
		progress.GET("", handler.GetProgress)
		progress.GET("/stats", handler.GetStats)
	}

	// 视频提交
	submissions := v1.Group("/submissions", authed...)
	{
		submissions.POST("", middleware.SubmissionRateLimitMiddleware(), handler.Submit)
		submissions.GET("", handler.ListSubmissions)
	}

	// 审核方使用共享密钥，不走参与者认证
	reviews := v1.Group("/reviews", middleware.ReviewerAuth())
	{
		reviews.GET("/pending", handler.ListPendingReviews)
		reviews.GET("/participants", handler.ListParticipants)
		reviews.POST("/:artifact_id", handler.ReviewSubmission)
	}

	reminders := v1.Group("/reminders", authed...)
	{
		reminders.GET("/inbox", handler.GetReminderInbox)
	}
}
