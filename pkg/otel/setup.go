package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/simsta2/modus-klar/config"
	dbotel "github.com/simsta2/modus-klar/pkg/database"
	"github.com/simsta2/modus-klar/pkg/metrics"
	mqotel "github.com/simsta2/modus-klar/pkg/mq"
	redisotel "github.com/simsta2/modus-klar/pkg/redis"
)

// Setup 按配置启用导出器并注册各组件的指标，三个进程共用。
// 未启用时全局 Provider 保持 noop，返回的清理函数什么也不做。
func Setup(ctx context.Context, component string) (func(context.Context) error, error) {
	shutdown := func(context.Context) error { return nil }

	if config.Cfg.TracingEnabled {
		var err error
		shutdown, err = InitOpenTelemetry(ctx, Config{
			ServiceName:    config.Cfg.ServiceName + "-" + component,
			ServiceVersion: "1.0.0",
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.OTLPEndpoint,
			SampleRatio:    config.Cfg.TracingSampler,
		})
		if err != nil {
			return nil, err
		}
	}

	meter := otel.Meter(config.Cfg.ServiceName)
	if err := dbotel.InitDatabaseMetrics(meter); err != nil {
		return shutdown, fmt.Errorf("database metrics: %w", err)
	}
	if err := redisotel.InitRedisMetrics(meter); err != nil {
		return shutdown, fmt.Errorf("redis metrics: %w", err)
	}
	if err := mqotel.InitMQMetrics(meter); err != nil {
		return shutdown, fmt.Errorf("mq metrics: %w", err)
	}
	if err := metrics.InitMetrics(); err != nil {
		return shutdown, fmt.Errorf("challenge metrics: %w", err)
	}

	return shutdown, nil
}
