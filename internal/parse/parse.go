package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"storepulse/internal/model"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2})(?:\.\d+)?)?$`)

// Clock is a local time of day expressed as seconds since midnight.
// 24:00:00 is accepted as the end of the day.
type Clock int

// DayEnd is the clock value for 24:00:00.
const DayEnd Clock = 24 * 60 * 60

// Duration returns the offset from local midnight.
func (c Clock) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// ParseClock parses "HH:MM" or "HH:MM:SS" (fractional seconds are dropped).
func ParseClock(raw string) (Clock, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s := 0
	if m[3] != "" {
		s, _ = strconv.Atoi(m[3])
	}
	if mi > 59 || s > 59 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	c := Clock(h*3600 + mi*60 + s)
	if c > DayEnd {
		return 0, fmt.Errorf("clock %q is past the end of the day", raw)
	}
	return c, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an observation timestamp and returns it in UTC.
// The exported CSVs use "2023-01-22 12:09:39.388884 UTC"; RFC3339 is accepted too.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", raw)
}

// ParseStatus normalizes a status column value.
func ParseStatus(raw string) (model.StoreStatus, error) {
	st := model.StoreStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return st, nil
}

// ParseWeekday parses a 0=Monday..6=Sunday day column.
func ParseWeekday(raw string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || d < 0 || d > 6 {
		return 0, fmt.Errorf("invalid day of week %q", raw)
	}
	return d, nil
}

// Weekday converts a Go weekday (Sunday=0) to the stored convention (Monday=0).
func Weekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
