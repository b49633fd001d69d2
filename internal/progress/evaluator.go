// Package progress 根据每日记录推导参与者的挑战进度。
//
// 评估是纯函数：不访问存储，不读取系统时间。需要重置或重新开始时，
// 结果中携带待执行的 Command，由调用方一次性交给存储层执行。
package progress

import (
	"sort"
	"time"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/utils"
)

// DefaultChallengeDays 一轮挑战的天数
const DefaultChallengeDays = 30

// SlotStatuses 当前挑战日两个时段的状态
type SlotStatuses struct {
	Morning model.SlotStatus
	Evening model.SlotStatus
}

// Result 评估结果
type Result struct {
	TodaySlots      SlotStatuses
	Commands        []Command
	CurrentStreak   int
	CurrentDay      int
	ResetRequired   bool
	RestartRequired bool
}

// NeedsMutation 是否需要执行存储变更
func (r Result) NeedsMutation() bool {
	return len(r.Commands) > 0
}

// Evaluator 根据每日记录计算连续天数、当前日以及需要的重置或重启变更，无状态，可并发使用
type Evaluator struct {
	days int
}

// NewEvaluator days <= 0 时使用 DefaultChallengeDays
func NewEvaluator(days int) *Evaluator {
	if days <= 0 {
		days = DefaultChallengeDays
	}
	return &Evaluator{days: days}
}

// Days 一轮挑战的天数
func (e *Evaluator) Days() int {
	return e.days
}

// Evaluate 使用默认天数评估
func Evaluate(records []model.DailyRecord, challengeStartDate, today time.Time) Result {
	return NewEvaluator(DefaultChallengeDays).Evaluate(records, challengeStartDate, today)
}

// Evaluate 按天号升序扫描一次记录，得出连续天数、当前日以及是否需要重置/重新开始。
// today 只取日历日部分，用于漏打卡推断和重置后的新开始日期。
func (e *Evaluator) Evaluate(records []model.DailyRecord, challengeStartDate, today time.Time) Result {
	days := sortedByDay(records)
	byNumber := make(map[int]model.DailyRecord, len(days))
	for _, d := range days {
		byNumber[d.DayNumber] = d
	}

	streak := 0
	reset := false

scan:
	for _, day := range days {
		switch {
		case day.FullyVerified():
			// 已通过的一天，但前一天没有全部通过：中间有缺口
			if !predecessorVerified(byNumber, day.DayNumber) {
				reset = true
				break scan
			}
			streak = day.DayNumber
		case day.HasRejected():
			reset = true
			streak = 0
			break scan
		default:
			if !predecessorVerified(byNumber, day.DayNumber) {
				reset = true
			}
			break scan
		}
	}

	currentDay := streak + 1
	restart := streak == e.days && !reset

	// 没有任何记录时不做漏打卡推断
	if !reset && len(days) > 0 {
		sinceStart := utils.DaysBetween(challengeStartDate, today)
		if sinceStart > streak+1 {
			current, ok := byNumber[currentDay]
			hasPending := ok && current.HasPending()
			if !hasPending && sinceStart >= currentDay {
				reset = true
			}
		}
	}

	switch {
	case reset:
		return Result{
			CurrentStreak: 0,
			CurrentDay:    1,
			ResetRequired: true,
			Commands:      ResetCommands(today),
		}
	case restart:
		return Result{
			CurrentStreak:   0,
			CurrentDay:      1,
			RestartRequired: true,
			Commands:        RestartCommands(today),
		}
	}

	result := Result{
		CurrentStreak: streak,
		CurrentDay:    currentDay,
	}
	if current, ok := byNumber[currentDay]; ok {
		result.TodaySlots = SlotStatuses{
			Morning: current.Status(model.SlotMorning),
			Evening: current.Status(model.SlotEvening),
		}
	}
	return result
}

func predecessorVerified(byNumber map[int]model.DailyRecord, dayNumber int) bool {
	if dayNumber <= 1 {
		return true
	}
	prev, ok := byNumber[dayNumber-1]
	return ok && prev.FullyVerified()
}

func sortedByDay(records []model.DailyRecord) []model.DailyRecord {
	days := make([]model.DailyRecord, len(records))
	copy(days, records)
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].DayNumber < days[j].DayNumber
	})
	return days
}
