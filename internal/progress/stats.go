package progress

import (
	"math"

	"github.com/simsta2/modus-klar/internal/model"
)

// Stats 参与者统计，只有一个时段通过的日子记半天
type Stats struct {
	TotalDays     int
	CompletedDays float64
	CurrentStreak int
	SuccessRate   float64
}

// Summarize 统计完成天数；遇到被拒的时段时清零并停止
func Summarize(records []model.DailyRecord) Stats {
	days := sortedByDay(records)
	stats := Stats{TotalDays: len(days)}

	for _, day := range days {
		switch {
		case day.FullyVerified():
			stats.CompletedDays++
			stats.CurrentStreak = day.DayNumber
		case day.HasRejected():
			stats.CompletedDays = 0
			stats.CurrentStreak = 0
			return finish(stats)
		case day.HasVerified():
			stats.CompletedDays += 0.5
		}
	}
	return finish(stats)
}

func finish(stats Stats) Stats {
	if stats.TotalDays > 0 {
		rate := stats.CompletedDays / float64(stats.TotalDays) * 100
		stats.SuccessRate = math.Round(rate*10) / 10
	}
	return stats
}
