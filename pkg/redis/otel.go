package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter
)

// InitRedisMetrics 初始化 Redis 指标
func InitRedisMetrics(meter metric.Meter) error {
	var err error

	if commandsTotal, err = meter.Int64Counter(
		"redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	); err != nil {
		return err
	}

	if commandDuration, err = meter.Float64Histogram(
		"redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	); err != nil {
		return err
	}

	// GET 命中率按键族统计（progress、session、reminder ...）
	cacheLookups, err = meter.Int64Counter(
		"redis.cache.lookups",
		metric.WithDescription("Number of GET lookups by key family and outcome"),
		metric.WithUnit("{lookup}"),
	)
	return err
}

// TracingHook 为每条命令和 pipeline 创建客户端 span
type TracingHook struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func NewTracingHook(serviceName string, db int) *TracingHook {
	return &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
		},
	}
}

func (th *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (th *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		name := cmd.Name()
		ctx, span := th.tracer.Start(ctx, cmd.FullName(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
			trace.WithAttributes(semconv.DBOperation(name)),
		)
		defer span.End()

		family := keyFamily(cmd.Args())
		if family != "" {
			span.SetAttributes(attribute.String("redis.key_family", family))
		}

		start := time.Now()
		err := next(ctx, cmd)
		outcome := markSpan(span, err)

		recordCommand(ctx, name, outcome, time.Since(start))
		if name == "get" && cacheLookups != nil && outcome != "error" {
			hit := "hit"
			if outcome == "nil" {
				hit = "miss"
			}
			cacheLookups.Add(ctx, 1, metric.WithAttributes(
				attribute.String("redis.key_family", family),
				attribute.String("cache.result", hit),
			))
		}
		return err
	}
}

func (th *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = cmd.Name()
		}

		ctx, span := th.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
			trace.WithAttributes(
				attribute.Int("redis.pipeline.length", len(cmds)),
				attribute.String("redis.pipeline.commands", strings.Join(names, " ")),
			),
		)
		defer span.End()

		start := time.Now()
		err := next(ctx, cmds)
		recordCommand(ctx, "pipeline", markSpan(span, err), time.Since(start))
		return err
	}
}

// markSpan redis.Nil 表示键不存在，不算失败
func markSpan(span trace.Span, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.Nil):
		return "nil"
	default:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return "error"
	}
}

func recordCommand(ctx context.Context, name, outcome string, elapsed time.Duration) {
	if commandsTotal == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("redis.command", name),
		attribute.String("redis.status", outcome),
	)
	commandsTotal.Add(ctx, 1, labels)
	commandDuration.Record(ctx, elapsed.Seconds(), labels)
}

// keyFamily 取首个键全局前缀后的一段作为标签（mk:session:xxx -> session），
// 键里的 ID 和会话不会进入 span
func keyFamily(args []interface{}) string {
	if len(args) < 2 {
		return ""
	}
	key, ok := args[1].(string)
	if !ok {
		return ""
	}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[1]
}

// InstrumentRedisClient 为 Redis 客户端添加 OpenTelemetry 支持
func InstrumentRedisClient(client *redis.Client, serviceName string, db int) {
	client.AddHook(NewTracingHook(serviceName, db))
}
