package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/simsta2/modus-klar/pkg/logger"
)

// Init 初始化所有中间件，需要在 token.Init 和 OpenTelemetry 初始化之后调用。
// 未启用链路追踪时全局 MeterProvider 是 noop，HTTP 指标同样可以安全记录。
func Init() error {
	if err := initAuthMiddleware(); err != nil {
		logger.Logger.Error("Failed to initialize auth middleware", zap.Error(err))
		return err
	}

	if err := InitMetrics(otel.Meter("modusklar-server")); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
