// Package time contains time related helpers, most importantly the civil Day
// used as the observation date of every ledger row
package time

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the canonical text form of a Day
const DayLayout = "2006-01-02"

// Now is the wall clock seam; tests swap it
var Now = time.Now

// Day is a calendar date without time of day or zone
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the UTC calendar date of t
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// Today returns the current UTC date
func Today() Day { return DayOf(Now()) }

// ParseDay parses the canonical YYYY-MM-DD form
func ParseDay(s string) (Day, error) {
	return ParseDayLayouts(s, DayLayout)
}

// ParseDayLayouts tries each layout in order and returns the first match
// Input is trimmed; any time of day in the layout is discarded
func ParseDayLayouts(s string, layouts ...string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("empty date")
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, fmt.Errorf("date %q matches none of %v", s, layouts)
}

// MustDay parses s or panics; for tests and static tables
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of d
func (d Day) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

// IsZero reports whether d is the zero Day
func (d Day) IsZero() bool { return d == Day{} }

// String renders YYYY-MM-DD
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1
func (d Day) Compare(o Day) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// Before reports whether d is strictly earlier than o
func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly later than o
func (d Day) After(o Day) bool { return d.Compare(o) > 0 }

// AddDays returns d shifted by n days
func (d Day) AddDays(n int) Day { return DayOf(d.Time().AddDate(0, 0, n)) }

// MarshalText implements encoding.TextMarshaler
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler; empty input yields the zero Day
func (d *Day) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Day{}
		return nil
	}
	v, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
