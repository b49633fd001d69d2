package reminder

import (
	"math/rand/v2"
	"time"

	"github.com/simsta2/modus-klar/config"
	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/utils"
)

// Window 时段的提醒窗口 [StartHour, EndHour)，按小时配置
type Window struct {
	Slot      model.Slot
	StartHour int
	EndHour   int
}

// Contains 判断 t 是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return t.Hour() >= w.StartHour && t.Hour() < w.EndHour
}

// End 返回 date 当天窗口的结束时刻
func (w Window) End(date time.Time) time.Time {
	return utils.AtHour(date, w.EndHour)
}

// DefaultWindows 早 9-12 点，晚 20-23 点
func DefaultWindows() []Window {
	return []Window{
		{Slot: model.SlotMorning, StartHour: 9, EndHour: 12},
		{Slot: model.SlotEvening, StartHour: 20, EndHour: 23},
	}
}

// WindowsFromConfig 按配置的小时生成早晚两个窗口
func WindowsFromConfig(c *config.Config) []Window {
	return []Window{
		{Slot: model.SlotMorning, StartHour: c.MorningWindowStart, EndHour: c.MorningWindowEnd},
		{Slot: model.SlotEvening, StartHour: c.EveningWindowStart, EndHour: c.EveningWindowEnd},
	}
}

// WindowFor 返回 slot 对应的窗口
func WindowFor(windows []Window, slot model.Slot) (Window, bool) {
	for _, w := range windows {
		if w.Slot == slot {
			return w, true
		}
	}
	return Window{}, false
}

// Random 随机数来源，测试中可替换为固定序列
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

// NextFireAt 计算窗口内下一次提醒时间，精确到分钟。
//   - now 早于窗口：今天整个窗口内随机
//   - now 在窗口内：今天 [当前小时, 结束) 内随机；不晚于 now 时缩小到 [当前小时+1, 结束)，
//     区间为空则改到明天
//   - now 不早于窗口结束：明天整个窗口内随机
func NextFireAt(w Window, now time.Time, rnd Random) time.Time {
	if rnd == nil {
		rnd = globalRandom{}
	}

	today := utils.DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	hour := now.Hour()

	switch {
	case hour < w.StartHour:
		return randomInWindow(today, w.StartHour, w.EndHour, rnd)
	case hour < w.EndHour:
		if t := randomInWindow(today, hour, w.EndHour, rnd); t.After(now) {
			return t
		}
		if hour+1 < w.EndHour {
			return randomInWindow(today, hour+1, w.EndHour, rnd)
		}
		return randomInWindow(tomorrow, w.StartHour, w.EndHour, rnd)
	default:
		return randomInWindow(tomorrow, w.StartHour, w.EndHour, rnd)
	}
}

func randomInWindow(date time.Time, minHour, maxHour int, rnd Random) time.Time {
	hour := minHour + rnd.IntN(maxHour-minHour)
	minute := rnd.IntN(60)
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}
