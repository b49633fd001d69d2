package metrics

import (
	"context"
)

// 评估结果
const (
	OutcomeSteady  = "steady"
	OutcomeReset   = "reset"
	OutcomeRestart = "restart"
)

// 提醒事件
const (
	ReminderArmed         = "armed"
	ReminderFired         = "fired"
	ReminderSuppressed    = "suppressed"
	ReminderDisplayFailed = "display_failed"
)

// RecordEvaluation 记录一次评估
func RecordEvaluation(ctx context.Context, outcome string, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordEvaluation(ctx, outcome, duration)
	}
}

// RecordStoreError 记录存储失败
func RecordStoreError(ctx context.Context, operation string) {
	if m := GetMetrics(); m != nil {
		m.RecordStoreError(ctx, operation)
	}
}

func RecordSubmission(ctx context.Context, slot string) {
	if m := GetMetrics(); m != nil {
		m.RecordSubmission(ctx, slot)
	}
}

func RecordReview(ctx context.Context, slot, status string) {
	if m := GetMetrics(); m != nil {
		m.RecordReview(ctx, slot, status)
	}
}

// RecordReminder 记录提醒事件
func RecordReminder(ctx context.Context, slot, event string) {
	if m := GetMetrics(); m != nil {
		m.RecordReminder(ctx, slot, event)
	}
}
