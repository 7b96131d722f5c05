// Package clock lets the engine's timers and calendar-day checks run
// against either wall time or a test-controlled fake.
package clock

import "time"

// Clock is the time source injected into every component that reads
// the current time or arms a repeating timer.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C until Stop is called. C has capacity 1;
// ticks are dropped when the consumer falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No ticks are sent on C after Stop returns.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}

// DateKey returns the calendar day of t in YYYY-MM-DD form.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether a and b fall on the same calendar day in the
// location of b.
func SameDay(a, b time.Time) bool {
	return DateKey(a.In(b.Location())) == DateKey(b)
}
