// Package timeutil provides timezone-aware calendar helpers for HydroMate.
// Every day boundary in the bot is resolved through a Calendar with an explicit
// location, never through the host's local timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// FormatDate is the day key format (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// Calendar resolves day keys in a fixed reference timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a calendar for the given location (UTC when nil).
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar creates a calendar from an IANA timezone name.
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// Location returns the reference timezone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayKey returns the YYYY-MM-DD key of t in the reference timezone.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.Location()).Format(FormatDate)
}

// PreviousDayKey returns the key of the calendar day before key.
// An unparsable key yields an empty string.
func (c Calendar) PreviousDayKey(key string) string {
	day, err := c.ParseDayKey(key)
	if err != nil {
		return ""
	}
	return day.AddDate(0, 0, -1).Format(FormatDate)
}

// ParseDayKey parses a day key as midnight in the reference timezone.
func (c Calendar) ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, key, c.Location())
}

// StartOfDay returns midnight of t's day in the reference timezone.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// DaysBetween returns the number of calendar days between two day keys.
func (c Calendar) DaysBetween(from, to string) (int, error) {
	a, err := c.ParseDayKey(from)
	if err != nil {
		return 0, err
	}
	b, err := c.ParseDayKey(to)
	if err != nil {
		return 0, err
	}
	// Round to absorb DST shifts between the two midnights.
	return int(b.Sub(a).Round(24*time.Hour).Hours() / 24), nil
}
