package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 进度评估相关指标
	EvaluationsTotal metric.Int64Counter
	ResetsTotal      metric.Int64Counter
	RestartsTotal    metric.Int64Counter
	StoreErrorsTotal metric.Int64Counter
	EvaluateDuration metric.Float64Histogram

	// 提交与审核
	SubmissionsTotal metric.Int64Counter
	ReviewsTotal     metric.Int64Counter

	// 提醒
	RemindersArmedTotal      metric.Int64Counter
	RemindersFiredTotal      metric.Int64Counter
	RemindersSuppressedTotal metric.Int64Counter
	ReminderDisplayFailures  metric.Int64Counter
}

var (
	// 全局指标实例，未初始化时所有 Record 方法都是空操作
	metrics *OTelMetrics
	meter   = otel.Meter("modus-klar")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	m := &OTelMetrics{}
	var err error

	if m.EvaluationsTotal, err = meter.Int64Counter(
		"progress_evaluations_total",
		metric.WithDescription("Total number of progress evaluations"),
		metric.WithUnit("{evaluation}"),
	); err != nil {
		return err
	}

	if m.ResetsTotal, err = meter.Int64Counter(
		"progress_resets_total",
		metric.WithDescription("Total number of challenge resets applied"),
		metric.WithUnit("{reset}"),
	); err != nil {
		return err
	}

	if m.RestartsTotal, err = meter.Int64Counter(
		"progress_restarts_total",
		metric.WithDescription("Total number of completed challenges restarted"),
		metric.WithUnit("{restart}"),
	); err != nil {
		return err
	}

	if m.StoreErrorsTotal, err = meter.Int64Counter(
		"progress_store_errors_total",
		metric.WithDescription("Total number of record store failures"),
		metric.WithUnit("{error}"),
	); err != nil {
		return err
	}

	if m.EvaluateDuration, err = meter.Float64Histogram(
		"progress_load_duration_seconds",
		metric.WithDescription("Time spent loading and evaluating progress"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if m.SubmissionsTotal, err = meter.Int64Counter(
		"submissions_total",
		metric.WithDescription("Total number of accepted submissions"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return err
	}

	if m.ReviewsTotal, err = meter.Int64Counter(
		"reviews_total",
		metric.WithDescription("Total number of reviewed submissions"),
		metric.WithUnit("{review}"),
	); err != nil {
		return err
	}

	if m.RemindersArmedTotal, err = meter.Int64Counter(
		"reminders_armed_total",
		metric.WithDescription("Total number of reminder timers armed"),
		metric.WithUnit("{timer}"),
	); err != nil {
		return err
	}

	if m.RemindersFiredTotal, err = meter.Int64Counter(
		"reminders_fired_total",
		metric.WithDescription("Total number of reminders displayed"),
		metric.WithUnit("{reminder}"),
	); err != nil {
		return err
	}

	if m.RemindersSuppressedTotal, err = meter.Int64Counter(
		"reminders_suppressed_total",
		metric.WithDescription("Total number of reminders suppressed because the session changed"),
		metric.WithUnit("{reminder}"),
	); err != nil {
		return err
	}

	if m.ReminderDisplayFailures, err = meter.Int64Counter(
		"reminder_display_failures_total",
		metric.WithDescription("Total number of reminders that could not be displayed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordEvaluation 记录一次评估及其结果
func (m *OTelMetrics) RecordEvaluation(ctx context.Context, outcome string, duration float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.EvaluationsTotal.Add(ctx, 1, attrs)
	m.EvaluateDuration.Record(ctx, duration, attrs)

	switch outcome {
	case OutcomeReset:
		m.ResetsTotal.Add(ctx, 1)
	case OutcomeRestart:
		m.RestartsTotal.Add(ctx, 1)
	}
}

// RecordStoreError 记录存储失败
func (m *OTelMetrics) RecordStoreError(ctx context.Context, operation string) {
	m.StoreErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordSubmission 记录一次提交
func (m *OTelMetrics) RecordSubmission(ctx context.Context, slot string) {
	m.SubmissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot", slot),
	))
}

// RecordReview 记录一次审核
func (m *OTelMetrics) RecordReview(ctx context.Context, slot, status string) {
	m.ReviewsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("status", status),
	))
}

// RecordReminder 记录提醒的状态变化
func (m *OTelMetrics) RecordReminder(ctx context.Context, slot, event string) {
	attrs := metric.WithAttributes(attribute.String("slot", slot))
	switch event {
	case ReminderArmed:
		m.RemindersArmedTotal.Add(ctx, 1, attrs)
	case ReminderFired:
		m.RemindersFiredTotal.Add(ctx, 1, attrs)
	case ReminderSuppressed:
		m.RemindersSuppressedTotal.Add(ctx, 1, attrs)
	case ReminderDisplayFailed:
		m.ReminderDisplayFailures.Add(ctx, 1, attrs)
	}
}
