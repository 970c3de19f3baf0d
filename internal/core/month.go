package core

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month key.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t, nil
}

// MonthOf returns the month key of a date, i.e. its first seven characters.
func MonthOf(date string) (string, error) {
	if _, err := ParseDate(date); err != nil {
		return "", err
	}
	return date[:7], nil
}

// FormatDate returns the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatMonth returns the month key of t.
func FormatMonth(t time.Time) string {
	return t.Format(MonthLayout)
}

// PreviousMonth returns the month key before month.
func PreviousMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return FormatMonth(t.AddDate(0, -1, 0)), nil
}

// NextMonth returns the month key after month.
func NextMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return FormatMonth(t.AddDate(0, 1, 0)), nil
}

// DaysInMonth returns the number of days of month.
func DaysInMonth(month string) (int, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}

// FirstWeekday returns the weekday the month starts on.
func FirstWeekday(month string) (time.Weekday, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// MonthLabel renders a month key for display, e.g. "January 2025".
func MonthLabel(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return t.Format("January 2006"), nil
}
