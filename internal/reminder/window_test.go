package reminder

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/simsta2/modus-klar/internal/model"
)

// seqRandom 按顺序返回预设值
type seqRandom struct {
	vals []int
	i    int
}

func (r *seqRandom) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

var morning = Window{Slot: model.SlotMorning, StartHour: 9, EndHour: 12}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.June, day, hour, minute, 0, 0, time.UTC)
}

func TestNextFireAtBeforeWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	now := at(3, 7, 15)

	for i := 0; i < 1000; i++ {
		got := NextFireAt(morning, now, rng)
		if got.Before(at(3, 9, 0)) || !got.Before(at(3, 12, 0)) {
			t.Fatalf("expected today's window, got %v", got)
		}
		if got.Second() != 0 || got.Nanosecond() != 0 {
			t.Fatalf("expected minute granularity, got %v", got)
		}
	}
}

func TestNextFireAtInsideWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	now := at(3, 10, 30)

	for i := 0; i < 2000; i++ {
		got := NextFireAt(morning, now, rng)
		sameDay := got.After(now) && got.Before(at(3, 12, 0))
		nextDay := !got.Before(at(4, 9, 0)) && got.Before(at(4, 12, 0))
		if !sameDay && !nextDay {
			t.Fatalf("fire time %v outside (10:30, 12:00) and tomorrow's window", got)
		}
	}
}

func TestNextFireAtRetriesNextHour(t *testing.T) {
	// 第一次选中 10:15（早于 now），改为在 [11, 12) 内选 11:40
	rnd := &seqRandom{vals: []int{0, 15, 0, 40}}

	got := NextFireAt(morning, at(3, 10, 30), rnd)

	if !got.Equal(at(3, 11, 40)) {
		t.Fatalf("expected 11:40 today, got %v", got)
	}
}

func TestNextFireAtNotStrictlyAfterNow(t *testing.T) {
	rnd := &seqRandom{vals: []int{0, 30, 0, 5}}

	got := NextFireAt(morning, at(3, 10, 30), rnd)

	if !got.Equal(at(3, 11, 5)) {
		t.Fatalf("a fire time equal to now must be retried, got %v", got)
	}
}

func TestNextFireAtCollapsesToTomorrow(t *testing.T) {
	rnd := &seqRandom{vals: []int{0, 10, 2, 5}}

	got := NextFireAt(morning, at(3, 11, 45), rnd)

	if !got.Equal(at(4, 11, 5)) {
		t.Fatalf("expected tomorrow 11:05, got %v", got)
	}
}

func TestNextFireAtAfterWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))

	for _, now := range []time.Time{at(3, 12, 0), at(3, 18, 59), at(3, 23, 59)} {
		got := NextFireAt(morning, now, rng)
		if got.Before(at(4, 9, 0)) || !got.Before(at(4, 12, 0)) {
			t.Fatalf("now=%v: expected tomorrow's window, got %v", now, got)
		}
	}
}

func TestNextFireAtFromWindowEndIsNextDay(t *testing.T) {
	evening := Window{Slot: model.SlotEvening, StartHour: 20, EndHour: 23}
	rng := rand.New(rand.NewPCG(7, 8))

	got := NextFireAt(evening, evening.End(at(3, 0, 0)), rng)

	if got.Before(at(4, 20, 0)) || !got.Before(at(4, 23, 0)) {
		t.Fatalf("expected tomorrow's evening window, got %v", got)
	}
}

func TestWindowContains(t *testing.T) {
	if !morning.Contains(at(3, 9, 0)) || !morning.Contains(at(3, 11, 59)) {
		t.Fatalf("window must include its start and last minute")
	}
	if morning.Contains(at(3, 12, 0)) || morning.Contains(at(3, 8, 59)) {
		t.Fatalf("window must exclude its end")
	}
}
