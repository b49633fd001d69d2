package utils

import (
	"time"
)

// DateOf 截断到 t 所在时区的日历日零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween 返回两个日历日之间相差的天数（to - from），与时区夏令时无关
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// AtHour 返回 date 当天 hour:00 的时刻
func AtHour(date time.Time, hour int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
}

// FormatDate 以 2006-01-02 格式输出日期
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
