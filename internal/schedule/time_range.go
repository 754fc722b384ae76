package schedule

import "fmt"

// MinimumDurationMinutes is the shortest span a TimeRange may cover.
const MinimumDurationMinutes = 30

// TimeRange is a span between two times of day. A range whose start is after
// its end crosses midnight; a range whose start equals its end covers the
// whole day. Both are reported as overnight.
type TimeRange struct {
	start     Time
	end       Time
	overnight bool
	duration  int
}

// NewTimeRange rejects spans shorter than MinimumDurationMinutes.
func NewTimeRange(start, end Time) (TimeRange, error) {
	overnight := !start.Before(end)

	var duration int
	if overnight {
		duration = MinutesPerDay - start.MinutesSinceMidnight() + end.MinutesSinceMidnight()
	} else {
		duration = end.MinutesSinceMidnight() - start.MinutesSinceMidnight()
	}

	if duration < MinimumDurationMinutes {
		return TimeRange{}, fmt.Errorf("%w: %s-%s lasts %d minutes, minimum is %d",
			ErrInvalidDuration, start.Format(), end.Format(), duration, MinimumDurationMinutes)
	}

	return TimeRange{start: start, end: end, overnight: overnight, duration: duration}, nil
}

// MustTimeRange panics when the range is invalid.
func MustTimeRange(start, end Time) TimeRange {
	r, err := NewTimeRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func (r TimeRange) Start() Time          { return r.start }
func (r TimeRange) End() Time            { return r.end }
func (r TimeRange) IsOvernight() bool    { return r.overnight }
func (r TimeRange) DurationMinutes() int { return r.duration }

// Equal compares endpoints only.
func (r TimeRange) Equal(o TimeRange) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

// ContainsTime reports whether t lies in the range, endpoints included.
func (r TimeRange) ContainsTime(t Time) bool {
	if r.overnight {
		return !t.Before(r.start) || !t.After(r.end)
	}
	return !t.Before(r.start) && !t.After(r.end)
}

func (r TimeRange) OverlapsWith(o TimeRange) bool {
	if r.ContainsTime(o.start) || r.ContainsTime(o.end) ||
		o.ContainsTime(r.start) || o.ContainsTime(r.end) {
		return true
	}
	// two overnight ranges always share the instants around midnight
	return r.overnight && o.overnight
}

// IsAdjacentTo is true when two same-day ranges touch end to start.
// Overnight ranges are never adjacent.
func (r TimeRange) IsAdjacentTo(o TimeRange) bool {
	if r.overnight || o.overnight {
		return false
	}
	return r.start.Equal(o.end) || r.end.Equal(o.start)
}

// Merge combines overlapping or adjacent ranges. ok is false when they are disjoint.
//
// If only one side is overnight, it wins as is. If both are, the longer one
// wins; on equal durations the earlier start wins, then the receiver.
func (r TimeRange) Merge(o TimeRange) (merged TimeRange, ok bool) {
	if !r.OverlapsWith(o) && !r.IsAdjacentTo(o) {
		return TimeRange{}, false
	}

	switch {
	case r.overnight && !o.overnight:
		return r, true
	case o.overnight && !r.overnight:
		return o, true
	case r.overnight && o.overnight:
		if r.duration != o.duration {
			if r.duration > o.duration {
				return r, true
			}
			return o, true
		}
		if o.start.Before(r.start) {
			return o, true
		}
		return r, true
	}

	start, end := r.start, r.end
	if o.start.Before(start) {
		start = o.start
	}
	if o.end.After(end) {
		end = o.end
	}
	out, err := NewTimeRange(start, end)
	if err != nil {
		return TimeRange{}, false
	}
	return out, true
}

// Intersection returns the shared part of two ranges. ok is false when there
// is none, or when the shared part would be shorter than the minimum duration.
func (r TimeRange) Intersection(o TimeRange) (shared TimeRange, ok bool) {
	if !r.OverlapsWith(o) {
		return TimeRange{}, false
	}

	switch {
	case r.overnight && o.overnight:
		if r.duration != o.duration {
			if r.duration < o.duration {
				return r, true
			}
			return o, true
		}
		if o.start.Before(r.start) {
			return o, true
		}
		return r, true
	case r.overnight:
		if r.ContainsTime(o.start) && r.ContainsTime(o.end) {
			return o, true
		}
		return TimeRange{}, false
	case o.overnight:
		if o.ContainsTime(r.start) && o.ContainsTime(r.end) {
			return r, true
		}
		return TimeRange{}, false
	}

	start, end := r.start, r.end
	if o.start.After(start) {
		start = o.start
	}
	if o.end.Before(end) {
		end = o.end
	}
	// ranges that only touch share a single instant, not a full day
	if !start.Before(end) {
		return TimeRange{}, false
	}
	out, err := NewTimeRange(start, end)
	if err != nil {
		return TimeRange{}, false
	}
	return out, true
}

// Format renders "start-end", e.g. "14-20" or "13:30-15".
func (r TimeRange) Format() string {
	return r.start.Format() + "-" + r.end.Format()
}

// FormatCompact is Format without hour padding.
func (r TimeRange) FormatCompact() string {
	return r.start.FormatCompact() + "-" + r.end.FormatCompact()
}

func (r TimeRange) String() string { return r.Format() }
