package telemetry

import (
	"time"
)

// Timer is a fixed-period deadline. It is rearmed from its previous deadline, not from the
// time it was serviced, so processing latency does not shift the schedule.
type Timer struct {
	period time.Duration
	next   time.Time
}

// NewTimer arms the first deadline one period after now.
func NewTimer(period time.Duration, now time.Time) *Timer {
	return &Timer{period: period, next: now.Add(period)}
}

func (t *Timer) Next() time.Time {
	return t.next
}

// Fire reports whether the deadline has passed and, if so, rearms it. Periods missed while the
// timer was not serviced collapse into this single firing; the next deadline keeps the original
// phase.
func (t *Timer) Fire(now time.Time) bool {
	if now.Before(t.next) {
		return false
	}
	t.next = t.next.Add(t.period)
	if !t.next.After(now) {
		missed := now.Sub(t.next)/t.period + 1
		t.next = t.next.Add(missed * t.period)
	}
	return true
}
