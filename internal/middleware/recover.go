package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/pkg/logger"
	"github.com/simsta2/modus-klar/pkg/response"
)

// 出现这些 panic 时进程状态已经不可信，额外打一条告警日志
var fatalPanicMarkers = []string{
	"out of memory",
	"concurrent map",
	"deadlock",
	"unexpected signal",
}

// RecoverMiddleware 捕获 handler 中的 panic，记录日志和 span 后返回 500。
// 非生产环境在响应 details 中附带 panic 信息和堆栈，方便本地排查。
func RecoverMiddleware() app.HandlerFunc {
	exposeDetails := !config.Cfg.IsProduction()

	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			stack := trimRuntimeFrames(debug.Stack())
			panicErr := fmt.Errorf("panic: %v", rec)

			logPanic(ctx, c, panicErr, stack)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.RecordError(panicErr)
				span.SetStatus(codes.Error, "panic recovered")
			}

			if exposeDetails {
				response.ErrorWithDetails(ctx, c, panicErr, map[string]interface{}{
					"panic": fmt.Sprint(rec),
					"stack": stack,
				})
			} else {
				response.Error(ctx, c, panicErr)
			}
			c.Abort()
		}()

		c.Next(ctx)
	}
}

func logPanic(ctx context.Context, c *app.RequestContext, panicErr error, stack string) {
	fields := []zap.Field{
		zap.Error(panicErr),
		zap.String("method", string(c.Method())),
		zap.String("route", routeOf(c)),
		zap.String("client_ip", c.ClientIP()),
		zap.String("content_type", string(c.ContentType())),
		zap.String("stack", stack),
	}
	if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
		fields = append(fields, zap.ByteString("request_id", requestID))
	}
	if participantID, ok := GetParticipantID(ctx, c); ok {
		fields = append(fields, zap.Int64("participant_id", participantID))
	}

	// 请求体里可能有密码，不记录 body
	logger.Logger.Error("Recovered from handler panic", fields...)

	if isFatalPanic(panicErr) {
		logger.Logger.Error("Handler panic indicates corrupted process state", zap.Error(panicErr))
	}
}

// trimRuntimeFrames 去掉 runtime 和 debug 包自身的帧
func trimRuntimeFrames(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	kept := make([]string, 0, len(lines))
	skipNext := false
	for _, line := range lines {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(line, "runtime/") || strings.HasPrefix(line, "panic(") {
			// 函数行的下一行是文件位置，一并跳过
			skipNext = true
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isFatalPanic(err error) bool {
	msg := err.Error()
	for _, marker := range fatalPanicMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
