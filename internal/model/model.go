package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-ap/errors"
)

// KeyLayout is the time layout of a DateKey.
const KeyLayout = "2006-01-02"

// DateKey identifies a calendar day in local time, formatted YYYY-MM-DD.
type DateKey string

// KeyFor returns the key of the calendar day t falls on in t's own location.
// The time-of-day part of t never affects the result.
func KeyFor(t time.Time) DateKey {
	return DateKey(t.Format(KeyLayout))
}

// KeyOf builds a key from calendar fields. Out-of-range month/day values
// normalize the same way time.Date does.
func KeyOf(year int, month time.Month, day int) DateKey {
	return KeyFor(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseKey returns local midnight of the day named by s in loc.
func ParseKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(KeyLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, errors.Annotatef(err, "invalid date key %q", s)
	}
	return t, nil
}

// Valid reports whether k is a well-formed, existing calendar day.
func (k DateKey) Valid() bool {
	_, err := time.Parse(KeyLayout, string(k))
	return err == nil
}

func (k DateKey) String() string {
	return string(k)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// TimeOfDay is a wall-clock time as minutes since midnight.
// Its text form is HH:MM, the value of an HTML time input.
type TimeOfDay int

// ParseTimeOfDay accepts "H:MM", "HH:MM" and "HH:MM:SS" (seconds dropped).
// An empty string is midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Newf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Newf("invalid hour in %q", s)
	}
	if len(parts[1]) != 2 {
		return 0, errors.Newf("invalid minute in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.Newf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, errors.Newf("invalid second in %q", s)
		}
	}
	return TimeOfDay(h*60 + m), nil
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places t on the day of key in loc.
func (t TimeOfDay) On(key DateKey, loc *time.Location) (time.Time, error) {
	day, err := ParseKey(string(key), loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Event is a titled time range attached to one calendar day.
type Event struct {
	// ID is assigned by the store when empty.
	ID    string    `json:"id,omitempty" yaml:"id,omitempty"`
	Title string    `json:"title" yaml:"title"`
	Start TimeOfDay `json:"start" yaml:"start"`
	End   TimeOfDay `json:"end" yaml:"end"`
	Date  DateKey   `json:"date" yaml:"date"`
}

// Equals compares every field, ID included.
func (e Event) Equals(other Event) bool {
	return e == other
}

func (e Event) String() string {
	return fmt.Sprintf("%s | %s - %s", e.Title, e.Start, e.End)
}
