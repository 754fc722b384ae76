package schedule

import (
	"fmt"
	"strconv"
)

const (
	MinutesPerDay = 24 * 60
	SecondsPerDay = MinutesPerDay * 60
)

// Time is a wall-clock time of day with minute precision.
// The zero value is midnight.
type Time struct {
	hours   int
	minutes int
	// cached hours*60+minutes
	sinceMidnight int
}

// NewTime validates hours (0-23) and minutes (0-59).
func NewTime(hours, minutes int) (Time, error) {
	if hours < 0 || hours > 23 {
		return Time{}, fmt.Errorf("%w: hours must be between 0 and 23, got %d", ErrInvalidTime, hours)
	}
	if minutes < 0 || minutes > 59 {
		return Time{}, fmt.Errorf("%w: minutes must be between 0 and 59, got %d", ErrInvalidTime, minutes)
	}
	return Time{hours: hours, minutes: minutes, sinceMidnight: hours*60 + minutes}, nil
}

// MustTime is NewTime for constants and tests. It panics on invalid input.
func MustTime(hours, minutes int) Time {
	t, err := NewTime(hours, minutes)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeFromMinutes builds a Time from minutes since midnight in [0, 1440).
func TimeFromMinutes(n int) (Time, error) {
	if n < 0 || n >= MinutesPerDay {
		return Time{}, fmt.Errorf("%w: minutes since midnight must be between 0 and %d, got %d", ErrInvalidTime, MinutesPerDay-1, n)
	}
	return NewTime(n/60, n%60)
}

// TimeFromUnixSeconds builds a Time from seconds since midnight in [0, 86400).
// Seconds are truncated.
func TimeFromUnixSeconds(s int64) (Time, error) {
	if s < 0 || s >= SecondsPerDay {
		return Time{}, fmt.Errorf("%w: seconds since midnight must be between 0 and %d, got %d", ErrInvalidTime, SecondsPerDay-1, s)
	}
	return TimeFromMinutes(int(s / 60))
}

func (t Time) Hours() int                { return t.hours }
func (t Time) Minutes() int              { return t.minutes }
func (t Time) MinutesSinceMidnight() int { return t.sinceMidnight }

// AddMinutes shifts t by n minutes, wrapping around midnight. Negative n moves backwards.
func (t Time) AddMinutes(n int) Time {
	total := (t.sinceMidnight + n) % MinutesPerDay
	if total < 0 {
		total += MinutesPerDay
	}
	return Time{hours: total / 60, minutes: total % 60, sinceMidnight: total}
}

func (t Time) SubtractMinutes(n int) Time {
	return t.AddMinutes(-n)
}

func (t Time) Before(o Time) bool { return t.sinceMidnight < o.sinceMidnight }
func (t Time) After(o Time) bool  { return t.sinceMidnight > o.sinceMidnight }
func (t Time) Equal(o Time) bool  { return t.sinceMidnight == o.sinceMidnight }

// Compare returns -1, 0 or +1.
func (t Time) Compare(o Time) int {
	switch {
	case t.sinceMidnight < o.sinceMidnight:
		return -1
	case t.sinceMidnight > o.sinceMidnight:
		return 1
	default:
		return 0
	}
}

// Format renders "HH" on the hour and "HH:MM" otherwise.
func (t Time) Format() string {
	if t.minutes == 0 {
		return fmt.Sprintf("%02d", t.hours)
	}
	return fmt.Sprintf("%02d:%02d", t.hours, t.minutes)
}

// FormatCompact drops the hour padding: 9 -> "9", 13:30 -> "13:30".
func (t Time) FormatCompact() string {
	if t.minutes == 0 {
		return strconv.Itoa(t.hours)
	}
	return fmt.Sprintf("%d:%02d", t.hours, t.minutes)
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.hours, t.minutes)
}
