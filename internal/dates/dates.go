// Package dates parses user supplied dates into the canonical YYYY-MM-DD form
// and compares calendar days.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CanonicalLayout is the storage and wire form of a calendar date.
const CanonicalLayout = "2006-01-02"

// MaxFutureYears bounds how far ahead of now a valid date may lie.
const MaxFutureYears = 5

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrFutureDate  = fmt.Errorf("%w: too far in the future", ErrInvalidDate)
)

// layouts is tried in order; the first match wins. ISO forms come first, then
// numeric forms read month-first, then textual forms.
var layouts = []string{
	CanonicalLayout,
	"2006-1-2",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"20060102",
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Monday, January 2, 2006",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// Parse reads raw using the fixed layout list. Layouts without a zone are
// interpreted in loc.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// ParseCanonical parses a stored YYYY-MM-DD value.
func ParseCanonical(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(CanonicalLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Validate returns the canonical form of raw, or an error wrapping
// ErrInvalidDate when it cannot be parsed or lies more than MaxFutureYears
// after now.
func Validate(raw string, now time.Time) (string, error) {
	t, err := Parse(raw, now.Location())
	if err != nil {
		return "", err
	}
	// The bound applies to the calendar date that is returned, not to the
	// instant, so inputs carrying their own offset cannot slip past it.
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if day.After(now.AddDate(MaxFutureYears, 0, 0)) {
		return "", ErrFutureDate
	}
	return day.Format(CanonicalLayout), nil
}

// DaysBetween counts calendar days from from to to. Each value is read in its
// own location, so time of day never shifts the result.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Format renders t in canonical form.
func Format(t time.Time) string {
	return t.Format(CanonicalLayout)
}
