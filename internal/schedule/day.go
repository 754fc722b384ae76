package schedule

import (
	"fmt"
	"strings"
)

// DayOfWeek counts from Monday (0) to Sunday (6).
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const DaysPerWeek = 7

var dayNames = [DaysPerWeek]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var dayKeys = map[string]DayOfWeek{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

// AllDays lists the week in order, Monday first.
func AllDays() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// ParseDayOfWeek accepts a weekday name in any case.
func ParseDayOfWeek(name string) (DayOfWeek, error) {
	d, ok := dayKeys[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown day name: %q", name)
	}
	return d, nil
}

func (d DayOfWeek) Valid() bool { return d >= Monday && d <= Sunday }

// Next wraps Sunday around to Monday.
func (d DayOfWeek) Next() DayOfWeek {
	return (d + 1) % DaysPerWeek
}

// String returns the display name, e.g. "Monday".
func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// Key returns the lowercase name used by upstream payloads.
func (d DayOfWeek) Key() string {
	return strings.ToLower(d.String())
}
