package reminder

import "time"

// Clock 时间来源与定时器，测试中使用手动推进的实现
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer 已布置的定时器
type Timer interface {
	Stop() bool
}

type realClock struct {
	loc *time.Location
}

// NewRealClock 返回使用系统时间的 Clock，Now 以 loc 时区表示
func NewRealClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return realClock{loc: loc}
}

func (c realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
