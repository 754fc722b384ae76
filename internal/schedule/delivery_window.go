package schedule

import (
	"fmt"
	"sort"
	"strings"
)

const closedLabel = "Closed"

// DeliveryWindow holds the normalized ranges of a single day. Ranges are
// sorted by start and no two of them overlap or touch. An empty window is closed.
type DeliveryWindow struct {
	day     DayOfWeek
	windows []TimeRange
}

// NewDeliveryWindow sorts ranges by start and merges overlapping or adjacent
// neighbours in one left-to-right sweep. The input slice is left untouched.
func NewDeliveryWindow(day DayOfWeek, ranges ...TimeRange) DeliveryWindow {
	return DeliveryWindow{day: day, windows: normalize(ranges)}
}

// ClosedWindow returns a window with no ranges.
func ClosedWindow(day DayOfWeek) DeliveryWindow {
	return DeliveryWindow{day: day}
}

func normalize(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	out := make([]TimeRange, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if merged, ok := current.Merge(next); ok {
			current = merged
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)

	// An overnight range sorts by its start but also covers the early hours,
	// so fold it into the leading ranges it reaches.
	for len(out) > 1 {
		last := out[len(out)-1]
		if !last.overnight {
			break
		}
		merged, ok := last.Merge(out[0])
		if !ok {
			break
		}
		out = append(out[1:len(out)-1:len(out)-1], merged)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].start.Before(out[j].start)
	})
	return out
}

func (w DeliveryWindow) Day() DayOfWeek { return w.day }

func (w DeliveryWindow) IsClosed() bool { return len(w.windows) == 0 }

// Windows returns a copy of the normalized ranges.
func (w DeliveryWindow) Windows() []TimeRange {
	if len(w.windows) == 0 {
		return nil
	}
	out := make([]TimeRange, len(w.windows))
	copy(out, w.windows)
	return out
}

// IntersectWith keeps the instants open in both windows. Both windows must
// belong to the same day.
func (w DeliveryWindow) IntersectWith(o DeliveryWindow) (DeliveryWindow, error) {
	if w.day != o.day {
		return DeliveryWindow{}, fmt.Errorf("%w: cannot intersect %s with %s", ErrIncompatibleDays, w.day, o.day)
	}
	if w.IsClosed() || o.IsClosed() {
		return ClosedWindow(w.day), nil
	}

	var shared []TimeRange
	for _, a := range w.windows {
		for _, b := range o.windows {
			if r, ok := a.Intersection(b); ok {
				shared = append(shared, r)
			}
		}
	}
	return NewDeliveryWindow(w.day, shared...), nil
}

// Equal reports whether both windows cover the same day with the same ranges.
func (w DeliveryWindow) Equal(o DeliveryWindow) bool {
	if w.day != o.day || len(w.windows) != len(o.windows) {
		return false
	}
	for i := range w.windows {
		if !w.windows[i].Equal(o.windows[i]) {
			return false
		}
	}
	return true
}

// Format joins ranges with ", ", or returns "Closed".
func (w DeliveryWindow) Format() string {
	return w.join(TimeRange.Format)
}

// FormatCompact is Format with unpadded hours, e.g. "9-12, 13:30-22".
func (w DeliveryWindow) FormatCompact() string {
	return w.join(TimeRange.FormatCompact)
}

func (w DeliveryWindow) join(f func(TimeRange) string) string {
	if w.IsClosed() {
		return closedLabel
	}
	parts := make([]string, len(w.windows))
	for i, r := range w.windows {
		parts[i] = f(r)
	}
	return strings.Join(parts, ", ")
}

func (w DeliveryWindow) String() string {
	return w.day.String() + ": " + w.Format()
}
