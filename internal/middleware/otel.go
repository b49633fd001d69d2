package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// httpMetrics HTTP 服务端指标
type httpMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	requestSize  metric.Int64Histogram
	responseSize metric.Int64Histogram
	active       metric.Int64UpDownCounter
}

var serverMetrics *httpMetrics

// toValidUTF8 统一清洗用户可控字符串，防止非法 UTF-8 触发指标/trace 序列化失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// InitMetrics 注册 HTTP 指标
func InitMetrics(meter metric.Meter) error {
	m := &httpMetrics{}
	var err error

	if m.requests, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.duration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	); err != nil {
		return err
	}

	if m.requestSize, err = meter.Int64Histogram(
		"http.server.request.size",
		metric.WithDescription("HTTP request body size"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.responseSize, err = meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("HTTP response body size"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.active, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	serverMetrics = m
	return nil
}

// routeOf 使用路由模板（/v1/reviews/:artifact_id）作为标签，避免 ID 撑爆基数
func routeOf(c *app.RequestContext) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// OpenTelemetryMiddleware 为每个请求创建 span 并记录 HTTP 指标。
// 不记录完整 URL，query 里可能带着 token。
func OpenTelemetryMiddleware() app.HandlerFunc {
	tracer := otel.Tracer("modusklar-server")

	return func(ctx context.Context, c *app.RequestContext) {
		m := serverMetrics
		if m == nil {
			c.Next(ctx)
			return
		}

		start := time.Now()
		method := toValidUTF8(string(c.Method()))
		route := toValidUTF8(routeOf(c))

		m.active.Add(ctx, 1)
		defer m.active.Add(ctx, -1)

		spanCtx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(method),
				semconv.HTTPRoute(route),
				semconv.HTTPScheme(toValidUTF8(string(c.Request.URI().Scheme()))),
				attribute.String("http.user_agent", toValidUTF8(string(c.UserAgent()))),
			),
		)
		defer span.End()

		if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
			span.SetAttributes(attribute.String("http.request_id", toValidUTF8(string(requestID))))
		}

		c.Next(spanCtx)

		status := c.Response.StatusCode()
		elapsed := time.Since(start).Seconds()

		// 认证中间件在 c.Next 中执行，此时才能取到参与者 ID
		if participantID, ok := GetParticipantID(spanCtx, c); ok {
			span.SetAttributes(attribute.Int64("enduser.id", participantID))
		}
		span.SetAttributes(semconv.HTTPStatusCode(status))

		switch {
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(lastErr)
			}
		case status >= 400:
			// 4xx 是调用方的问题，不标记 span 失败
			span.SetAttributes(attribute.Bool("http.client_error", true))
		default:
			span.SetStatus(codes.Ok, "")
		}

		attrs := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(status),
		)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, elapsed, attrs)

		if size := int64(c.Request.Header.ContentLength()); size > 0 {
			m.requestSize.Record(ctx, size, attrs)
		}
		if size := int64(len(c.Response.Body())); size > 0 {
			m.responseSize.Record(ctx, size, attrs)
		}
	}
}

// NewServerTracerConfig 返回 hertz server 的追踪选项和对应的中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
