package core

import "time"

// Clock supplies the current time. Anything that defaults a date or a month
// reads it from a Clock so it can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today returns the clock's current calendar date.
func Today(c Clock) string {
	return FormatDate(c.Now())
}

// CurrentMonth returns the clock's current month key.
func CurrentMonth(c Clock) string {
	return FormatMonth(c.Now())
}
