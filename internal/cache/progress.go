package cache

import (
	"context"
	"strconv"
	"time"
)

// ProgressSnapshot 最近一次成功评估的结果，存储不可用时返回给调用方
type ProgressSnapshot struct {
	EvaluatedAt        time.Time `json:"evaluated_at"`
	ChallengeStartDate string    `json:"challenge_start_date"`
	MorningStatus      string    `json:"morning_status"`
	EveningStatus      string    `json:"evening_status"`
	CurrentDay         int       `json:"current_day"`
	CurrentStreak      int       `json:"current_streak"`
}

func SetProgressSnapshot(ctx context.Context, participantID int64, snapshot *ProgressSnapshot) error {
	return ProgressSnapshotCache.Set(ctx, strconv.FormatInt(participantID, 10), snapshot)
}

// GetProgressSnapshot 未命中时返回 (nil, nil)
func GetProgressSnapshot(ctx context.Context, participantID int64) (*ProgressSnapshot, error) {
	var snapshot ProgressSnapshot
	found, err := ProgressSnapshotCache.Get(ctx, strconv.FormatInt(participantID, 10), &snapshot)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

func InvalidateProgressSnapshot(ctx context.Context, participantID int64) error {
	return ProgressSnapshotCache.Delete(ctx, strconv.FormatInt(participantID, 10))
}

// ProgressLockKey 每个参与者一把评估锁
func ProgressLockKey(participantID int64) string {
	return "progress:" + strconv.FormatInt(participantID, 10)
}
