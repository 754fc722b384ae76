package schedule

import "fmt"

// WeeklyDeliveryWindow is a complete week; every day has a window, closed
// when nothing was provided for it. Overnight ranges stay on the day they start.
type WeeklyDeliveryWindow struct {
	days [DaysPerWeek]DeliveryWindow
}

// NewWeeklyDeliveryWindow fills missing days with closed windows. A window
// stored under a different day than its own is re-anchored to the key.
func NewWeeklyDeliveryWindow(byDay map[DayOfWeek]DeliveryWindow) WeeklyDeliveryWindow {
	var week WeeklyDeliveryWindow
	for _, d := range AllDays() {
		w, ok := byDay[d]
		if !ok {
			week.days[d] = ClosedWindow(d)
			continue
		}
		if w.day != d {
			w = DeliveryWindow{day: d, windows: w.windows}
		}
		week.days[d] = w
	}
	return week
}

// EmptyWeek is closed on every day.
func EmptyWeek() WeeklyDeliveryWindow {
	return NewWeeklyDeliveryWindow(nil)
}

// DayWindow returns the window of d. Out-of-range days read as closed.
func (w WeeklyDeliveryWindow) DayWindow(d DayOfWeek) DeliveryWindow {
	if !d.Valid() {
		return ClosedWindow(d)
	}
	if w.days[d].day != d {
		// zero value: never built through the constructor
		return ClosedWindow(d)
	}
	return w.days[d]
}

// IsEmpty reports whether every day is closed.
func (w WeeklyDeliveryWindow) IsEmpty() bool {
	for _, d := range AllDays() {
		if !w.days[d].IsClosed() {
			return false
		}
	}
	return true
}

// IntersectWith intersects the two weeks day by day. Days never interact.
func (w WeeklyDeliveryWindow) IntersectWith(o WeeklyDeliveryWindow) (WeeklyDeliveryWindow, error) {
	out := make(map[DayOfWeek]DeliveryWindow, DaysPerWeek)
	for _, d := range AllDays() {
		shared, err := w.DayWindow(d).IntersectWith(o.DayWindow(d))
		if err != nil {
			return WeeklyDeliveryWindow{}, fmt.Errorf("intersect %s: %w", d, err)
		}
		out[d] = shared
	}
	return NewWeeklyDeliveryWindow(out), nil
}

func (w WeeklyDeliveryWindow) Equal(o WeeklyDeliveryWindow) bool {
	for _, d := range AllDays() {
		if !w.DayWindow(d).Equal(o.DayWindow(d)) {
			return false
		}
	}
	return true
}

// ScheduleData lists the ranges of each open day. Closed days are omitted.
func (w WeeklyDeliveryWindow) ScheduleData() map[DayOfWeek][]TimeRange {
	out := make(map[DayOfWeek][]TimeRange)
	for _, d := range AllDays() {
		if dw := w.DayWindow(d); !dw.IsClosed() {
			out[d] = dw.Windows()
		}
	}
	return out
}

// ToAPIFormat maps each display day name to its compact rendering, e.g.
// "Monday": "10-13, 17-22", "Tuesday": "Closed".
func (w WeeklyDeliveryWindow) ToAPIFormat() map[string]string {
	out := make(map[string]string, DaysPerWeek)
	for _, d := range AllDays() {
		out[d.String()] = w.DayWindow(d).FormatCompact()
	}
	return out
}

// Format renders the week with padded hours, one entry per day.
func (w WeeklyDeliveryWindow) Format() map[string]string {
	out := make(map[string]string, DaysPerWeek)
	for _, d := range AllDays() {
		out[d.String()] = w.DayWindow(d).Format()
	}
	return out
}
