package schedule

import (
	"sort"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// RawEvent is one entry of an upstream opening-hours list: either
// {"open": seconds} or {"close": seconds}, seconds counted from midnight.
type RawEvent struct {
	Open  *int64 `json:"open,omitempty" yaml:"open,omitempty"`
	Close *int64 `json:"close,omitempty" yaml:"close,omitempty"`
}

// OpenAt and CloseAt build events; mostly useful in tests and fixtures.
func OpenAt(seconds int64) RawEvent  { return RawEvent{Open: &seconds} }
func CloseAt(seconds int64) RawEvent { return RawEvent{Close: &seconds} }

// RawWeek maps lowercase weekday names to their event lists, the payload
// shape shared by the venue and courier services.
type RawWeek map[string][]RawEvent

// Converter turns RawWeek payloads into WeeklyDeliveryWindow values. Bad
// entries are logged and skipped; conversion itself never fails.
type Converter struct {
	logger logger.Logger
}

func NewConverter(log logger.Logger) *Converter {
	return &Converter{logger: log}
}

type dayEvents struct {
	opens  []int64
	closes []int64

	ranges         []TimeRange
	leftoverOpens  []int64
	leftoverCloses []int64
}

type closeKey struct {
	day DayOfWeek
	at  int64
}

// Convert pairs events day by day, stitches overnight ranges across
// consecutive days and normalizes the result.
func (c *Converter) Convert(raw RawWeek) WeeklyDeliveryWindow {
	events := c.collect(raw)

	for _, d := range AllDays() {
		if ev := events[d]; ev != nil {
			c.pairDay(d, ev)
		}
	}

	used := make(map[closeKey]struct{})
	for _, d := range AllDays() {
		c.stitchOvernight(d, events, used)
	}

	byDay := make(map[DayOfWeek]DeliveryWindow, DaysPerWeek)
	for _, d := range AllDays() {
		ev := events[d]
		if ev == nil {
			continue
		}
		if len(ev.leftoverOpens) > 0 || len(ev.leftoverCloses) > 0 {
			c.logger.Warn("Dropping unpaired opening hours events",
				"day", d.Key(), "opens", ev.leftoverOpens, "closes", ev.leftoverCloses)
		}
		if len(ev.ranges) > 0 {
			byDay[d] = NewDeliveryWindow(d, ev.ranges...)
		}
	}
	return NewWeeklyDeliveryWindow(byDay)
}

func (c *Converter) collect(raw RawWeek) map[DayOfWeek]*dayEvents {
	events := make(map[DayOfWeek]*dayEvents, DaysPerWeek)
	for name, list := range raw {
		d, err := ParseDayOfWeek(name)
		if err != nil {
			c.logger.Warn("Ignoring unknown day in opening hours", "day", name)
			continue
		}
		ev := events[d]
		if ev == nil {
			ev = &dayEvents{}
			events[d] = ev
		}
		for _, e := range list {
			switch {
			case e.Open != nil && e.Close != nil:
				c.logger.Warn("Ignoring event with both open and close", "day", d.Key(), "open", *e.Open, "close", *e.Close)
			case e.Open != nil:
				if c.inDay(d, *e.Open) {
					ev.opens = append(ev.opens, *e.Open)
				}
			case e.Close != nil:
				if c.inDay(d, *e.Close) {
					ev.closes = append(ev.closes, *e.Close)
				}
			default:
				c.logger.Warn("Ignoring event without open or close", "day", d.Key())
			}
		}
		if len(ev.opens) != len(ev.closes) {
			c.logger.Debug("Unbalanced opening hours events", "day", d.Key(), "opens", len(ev.opens), "closes", len(ev.closes))
		}
	}
	for _, ev := range events {
		sort.Slice(ev.opens, func(i, j int) bool { return ev.opens[i] < ev.opens[j] })
		sort.Slice(ev.closes, func(i, j int) bool { return ev.closes[i] < ev.closes[j] })
	}
	return events
}

func (c *Converter) inDay(d DayOfWeek, seconds int64) bool {
	if seconds < 0 || seconds >= SecondsPerDay {
		c.logger.Warn("Ignoring out of range timestamp", "day", d.Key(), "seconds", seconds)
		return false
	}
	return true
}

// pairDay walks sorted opens and closes in lockstep. A close earlier than the
// current open is set aside for overnight stitching.
func (c *Converter) pairDay(d DayOfWeek, ev *dayEvents) {
	i, j := 0, 0
	for i < len(ev.opens) && j < len(ev.closes) {
		openAt, closeAt := ev.opens[i], ev.closes[j]
		if closeAt < openAt {
			ev.leftoverCloses = append(ev.leftoverCloses, closeAt)
			j++
			continue
		}
		if r, ok := c.buildRange(d, openAt, closeAt); ok {
			ev.ranges = append(ev.ranges, r)
		}
		i++
		j++
	}
	ev.leftoverOpens = append(ev.leftoverOpens, ev.opens[i:]...)
	ev.leftoverCloses = append(ev.leftoverCloses, ev.closes[j:]...)
}

func (c *Converter) buildRange(d DayOfWeek, openAt, closeAt int64) (TimeRange, bool) {
	start, err := TimeFromUnixSeconds(openAt)
	if err != nil {
		c.logger.Warn("Invalid opening time", "day", d.Key(), "seconds", openAt, "error", err)
		return TimeRange{}, false
	}
	end, err := TimeFromUnixSeconds(closeAt)
	if err != nil {
		c.logger.Warn("Invalid closing time", "day", d.Key(), "seconds", closeAt, "error", err)
		return TimeRange{}, false
	}
	if start.Equal(end) {
		// equal endpoints would read as a full day
		c.logger.Warn("Skipping zero length window", "day", d.Key(), "open", openAt, "close", closeAt)
		return TimeRange{}, false
	}
	r, err := NewTimeRange(start, end)
	if err != nil {
		c.logger.Warn("Invalid time range", "day", d.Key(), "open", openAt, "close", closeAt, "error", err)
		return TimeRange{}, false
	}
	return r, true
}

// stitchOvernight joins the trailing open of d with the leading close of the
// following day into one range anchored to d.
func (c *Converter) stitchOvernight(d DayOfWeek, events map[DayOfWeek]*dayEvents, used map[closeKey]struct{}) {
	next := d.Next()
	cur, nxt := events[d], events[next]
	if cur == nil || nxt == nil || len(cur.leftoverOpens) == 0 || len(nxt.leftoverCloses) == 0 {
		return
	}

	openAt := cur.leftoverOpens[len(cur.leftoverOpens)-1]
	if len(cur.closes) > 0 && openAt <= cur.closes[len(cur.closes)-1] {
		return
	}

	closeIdx := -1
	for idx, at := range nxt.leftoverCloses {
		if _, taken := used[closeKey{day: next, at: at}]; !taken {
			closeIdx = idx
			break
		}
	}
	if closeIdx < 0 {
		return
	}
	closeAt := nxt.leftoverCloses[closeIdx]
	if len(nxt.opens) > 0 && closeAt >= nxt.opens[0] {
		return
	}

	used[closeKey{day: next, at: closeAt}] = struct{}{}
	cur.leftoverOpens = cur.leftoverOpens[:len(cur.leftoverOpens)-1]
	nxt.leftoverCloses = append(nxt.leftoverCloses[:closeIdx:closeIdx], nxt.leftoverCloses[closeIdx+1:]...)

	start, err := TimeFromUnixSeconds(openAt)
	if err != nil {
		c.logger.Warn("Invalid overnight opening time", "day", d.Key(), "seconds", openAt, "error", err)
		return
	}
	end, err := TimeFromUnixSeconds(closeAt)
	if err != nil {
		c.logger.Warn("Invalid overnight closing time", "day", next.Key(), "seconds", closeAt, "error", err)
		return
	}
	r, err := NewTimeRange(start, end)
	if err != nil {
		c.logger.Warn("Invalid overnight time range", "day", d.Key(), "open", openAt, "close", closeAt, "error", err)
		return
	}
	cur.ranges = append(cur.ranges, r)
}
