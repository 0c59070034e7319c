// Package schedule decides whether the low color temperature period is active.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidTime is returned for malformed time-of-day values.
var ErrInvalidTime = errors.New("invalid time of day")

// MinutesPerDay is the number of distinct ClockTime values.
const MinutesPerDay = 24 * 60

// ClockTime is a time of day with minute resolution, counted from midnight.
type ClockTime int

// Clock builds a ClockTime from hour and minute, wrapping into a single day.
func Clock(hour, minute int) ClockTime {
	m := (hour*60 + minute) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return ClockTime(m)
}

// At returns the time of day of t in t's location.
func At(t time.Time) ClockTime {
	return Clock(t.Hour(), t.Minute())
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	m := fixedPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Clock(hour, minute), nil
}

// Hour returns the hour component.
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c ClockTime) Minute() int { return int(c) % 60 }

// String formats the time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// IsLowPeriod reports whether now falls in the low period that begins at
// start and ends at end. The check is now >= start || now < end, which covers
// windows wrapping past midnight. start == end is treated as always low.
func IsLowPeriod(now, start, end ClockTime) bool {
	if start == end {
		return true
	}
	return now >= start || now < end
}
