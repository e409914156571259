// Package timepolicy holds the pure wall-clock rules of the attendance ledger:
// parsing class times, deciding lateness and measuring how late an arrival was.
//
// All arithmetic is done on minutes since midnight of a single observer's
// local clock. Callers convert instants into that clock (see ClockOf) before
// asking the policy anything.
package timepolicy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

const (
	// MinutesPerDay is the modulus of wrapped clock arithmetic.
	MinutesPerDay = 24 * 60

	// DefaultGrace is the tolerance within which a late arrival still counts as on time.
	DefaultGrace = 5 * time.Minute

	// MidnightWindow is how far either side of midnight two clocks may sit and
	// still be read as neighbours across the day boundary.
	MidnightWindow = 3 * 60
)

// ═══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ═══════════════════════════════════════════════════════════════════════════════

// Clock is a wall-clock time of day expressed as minutes since midnight.
type Clock int

// NewClock builds a Clock from hour (0-23) and minute (0-59).
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", shared.ErrInvalidTimeFormat, hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// MustClock is like NewClock but panics on invalid input. Intended for fixtures.
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the wall clock of t in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// ParseClock parses "hh:mm AM", "h:mm pm" or 24-hour "HH:MM".
// Surrounding whitespace is ignored and the meridiem is case-insensitive.
func ParseClock(s string) (Clock, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return 0, invalidTime(s)
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(raw, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(raw, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, meridiem))
	}

	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return 0, invalidTime(s)
	}
	if !allDigits(hh) || !allDigits(mm) {
		return 0, invalidTime(s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, invalidTime(s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute > 59 {
		return 0, invalidTime(s)
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, invalidTime(s)
		}
		hour %= 12
		if meridiem == "PM" {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return 0, invalidTime(s)
	}

	return Clock(hour*60 + minute), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func invalidTime(s string) error {
	return fmt.Errorf("%w: %q", shared.ErrInvalidTimeFormat, s)
}

// Hour returns the 24-hour component.
func (c Clock) Hour() int { return int(c.normalize()) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c.normalize()) % 60 }

// String renders the clock as "hh:mm AM".
func (c Clock) String() string {
	h, m := c.Hour(), c.Minute()
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, m, meridiem)
}

// On places the clock on the calendar day of day, in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, loc)
}

func (c Clock) normalize() Clock {
	return ((c % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// Delta returns the signed same-day minutes from scheduled to actual.
// The day boundary is crossed only when both clocks lie within MidnightWindow
// of midnight: 11:58 PM -> 12:03 AM is +5 and 12:05 AM -> 11:58 PM is -7,
// while 10:00 AM -> 10:30 PM stays +750.
func Delta(scheduled, actual Clock) int {
	d := int(actual.normalize() - scheduled.normalize())
	switch {
	case d < 0 && d+MinutesPerDay <= MidnightWindow:
		d += MinutesPerDay
	case d > 0 && MinutesPerDay-d <= MidnightWindow:
		d -= MinutesPerDay
	}
	return d
}

// ═══════════════════════════════════════════════════════════════════════════════
// POLICY
// ═══════════════════════════════════════════════════════════════════════════════

// Arrival classifies a check-in against its class time.
type Arrival string

const (
	ArrivalUnknown Arrival = ""
	ArrivalOnTime  Arrival = "on_time"
	ArrivalLate    Arrival = "late"
)

// Policy decides lateness with a grace period.
type Policy struct {
	Grace time.Duration
}

// NewPolicy returns a policy with the given grace; negative values use DefaultGrace.
func NewPolicy(grace time.Duration) Policy {
	if grace < 0 {
		grace = DefaultGrace
	}
	return Policy{Grace: grace}
}

// Default returns the policy with the standard five minute grace.
func Default() Policy {
	return Policy{Grace: DefaultGrace}
}

// IsLate reports whether actual is strictly past scheduled plus grace.
func (p Policy) IsLate(scheduled, actual Clock) bool {
	return Delta(scheduled, actual) > int(p.Grace/time.Minute)
}

// Classify returns ArrivalLate when IsLate, ArrivalOnTime otherwise.
func (p Policy) Classify(scheduled, actual Clock) Arrival {
	if p.IsLate(scheduled, actual) {
		return ArrivalLate
	}
	return ArrivalOnTime
}

// LateBy measures the delay from the scheduled time itself, not from the end
// of the grace period: 10:00 vs 10:06 is six minutes. Early arrivals yield zero.
func LateBy(scheduled, actual Clock) time.Duration {
	d := Delta(scheduled, actual)
	if d <= 0 {
		return 0
	}
	return time.Duration(d) * time.Minute
}

// Evaluate returns the arrival classification and, only when late, the delay.
func (p Policy) Evaluate(scheduled, actual Clock) (Arrival, time.Duration) {
	if !p.IsLate(scheduled, actual) {
		return ArrivalOnTime, 0
	}
	return ArrivalLate, LateBy(scheduled, actual)
}

// FormatLateBy renders a delay as "6 min" or "1 h 05 min".
func FormatLateBy(d time.Duration) string {
	m := int(d / time.Minute)
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%d h %02d min", m/60, m%60)
}
