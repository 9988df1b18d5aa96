// Package schedule resolves store business hours into absolute UTC intervals.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"storepulse/internal/model"
	"storepulse/internal/parse"
)

// ClockRange is a local open/close pair. Close <= Open means the range runs
// past midnight into the next day; Close == Open covers a full day.
type ClockRange struct {
	Open  parse.Clock
	Close parse.Clock
}

// Interval is a half-open UTC time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

var fullDay = []ClockRange{{Open: 0, Close: parse.DayEnd}}

// Hours is the weekly business hour table of one store.
type Hours struct {
	days       [7][]ClockRange
	configured bool
}

// NewHours builds the weekly table from the store's rules. A store with no
// rules at all is open around the clock.
func NewHours(rules []model.BusinessHour) (*Hours, error) {
	h := &Hours{configured: len(rules) > 0}
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return nil, fmt.Errorf("store %s: invalid day of week %d", r.StoreID, r.DayOfWeek)
		}
		open, err := parse.ParseClock(r.StartTimeLocal)
		if err != nil {
			return nil, fmt.Errorf("store %s day %d: %w", r.StoreID, r.DayOfWeek, err)
		}
		closeAt, err := parse.ParseClock(r.EndTimeLocal)
		if err != nil {
			return nil, fmt.Errorf("store %s day %d: %w", r.StoreID, r.DayOfWeek, err)
		}
		h.days[r.DayOfWeek] = append(h.days[r.DayOfWeek], ClockRange{Open: open, Close: closeAt})
	}
	for d := range h.days {
		sort.Slice(h.days[d], func(i, j int) bool { return h.days[d][i].Open < h.days[d][j].Open })
	}
	return h, nil
}

// ForWeekday returns the ranges for day d (0=Monday).
func (h *Hours) ForWeekday(d int) []ClockRange {
	if !h.configured {
		return fullDay
	}
	return h.days[d]
}

// OpenIntervals returns the merged, sorted UTC intervals inside [from, to]
// during which the store is open in location loc.
func (h *Hours) OpenIntervals(loc *time.Location, from, to time.Time) []Interval {
	if !to.After(from) {
		return nil
	}

	// Start a day early so ranges that began the previous evening are seen.
	first := from.In(loc).AddDate(0, 0, -1)
	last := to.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	end := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	var out []Interval
	for ; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, r := range h.ForWeekday(parse.Weekday(day.Weekday())) {
			start := atClock(day, r.Open)
			stop := atClock(day, r.Close)
			if r.Close <= r.Open {
				stop = atClock(day.AddDate(0, 0, 1), r.Close)
			}
			if start.Before(from) {
				start = from
			}
			if stop.After(to) {
				stop = to
			}
			if stop.After(start) {
				out = append(out, Interval{Start: start.UTC(), End: stop.UTC()})
			}
		}
	}
	return merge(out)
}

// atClock resolves a wall clock on a local date, so DST shifts follow the zone rules.
func atClock(day time.Time, c parse.Clock) time.Time {
	secs := int(c)
	return time.Date(day.Year(), day.Month(), day.Day(), secs/3600, secs%3600/60, secs%60, 0, day.Location())
}

func merge(in []Interval) []Interval {
	if len(in) < 2 {
		return in
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })
	out := in[:1]
	for _, iv := range in[1:] {
		tail := &out[len(out)-1]
		if !iv.Start.After(tail.End) {
			if iv.End.After(tail.End) {
				tail.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Total sums the length of the intervals.
func Total(ivs []Interval) time.Duration {
	var d time.Duration
	for _, iv := range ivs {
		d += iv.Duration()
	}
	return d
}
