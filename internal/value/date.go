package value

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical text form of a Date.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var (
	// ErrDateOutOfRange is returned when a date falls outside MinDate..MaxDate.
	ErrDateOutOfRange = errors.New("date out of range")
	// ErrInvalidDate is returned for calendar components that do not name a
	// real day, such as February 30th.
	ErrInvalidDate = errors.New("invalid calendar date")
)

var (
	// MinDate is the earliest representable date, 0001-01-01.
	MinDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MaxDate is the latest representable date, 9999-12-31.
	MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// DateVal returns a Date for the given calendar day. Components are not
// normalized: month 13 or day 32 is an error rather than a rollover.
func DateVal(year int, month time.Month, day int) (Value, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Value{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return dateFromTime(t)
}

// DateOf truncates t to its calendar day (in t's own location) and returns
// it as a Date.
func DateOf(t time.Time) (Value, error) {
	y, m, d := t.Date()
	return dateFromTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses the DateLayout form.
func ParseDate(s string) (Value, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return dateFromTime(t)
}

func dateFromTime(t time.Time) (Value, error) {
	if t.Before(MinDate) || t.After(MaxDate) {
		return Value{}, fmt.Errorf("%w: %s", ErrDateOutOfRange, t.Format(DateLayout))
	}
	return Value{kind: Date, date: t}, nil
}

// AddDays shifts a Date by n calendar days. The receiver must be a Date.
func (v Value) AddDays(n int) (Value, error) {
	if v.kind != Date {
		return Value{}, fmt.Errorf("%w: %s is not a date", ErrKindMismatch, v.kind)
	}
	// Bound n before calling AddDate so that huge offsets cannot wrap.
	maxSpan := DaysBetween(MinDate, MaxDate) + 1
	if n > maxSpan || n < -maxSpan {
		return Value{}, fmt.Errorf("%w: %s %+d days", ErrDateOutOfRange, v.date.Format(DateLayout), n)
	}
	return dateFromTime(v.date.AddDate(0, 0, n))
}

// DaysBetween returns the number of days from a to b; it is negative when b
// is before a. Both times are expected at midnight UTC. time.Duration cannot
// span the full date range, so the difference is taken in Unix seconds.
func DaysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// MonthsBetween returns the number of whole calendar months from a to b,
// truncated toward zero. 2024-01-31 to 2024-02-29 is 0 months; 2024-01-31 to
// 2024-03-31 is 2.
func MonthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	switch {
	case months > 0 && b.Day() < a.Day():
		months--
	case months < 0 && b.Day() > a.Day():
		months++
	}
	return months
}
