package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form accepted on input.
const DateLayout = "2006-01-02"

// InstantLayout formats instants in UTC with an explicit Z suffix.
const InstantLayout = "2006-01-02T15:04:05Z"

// DateKey is a UTC calendar day, [Start 00:00:00Z, End 23:59:59Z].
// It is used both as catalogue filter bounds and to derive WMS times.
type DateKey struct {
	Start time.Time
	End   time.Time
}

// NewDateKey normalises t to the UTC day containing it.
// The zero time is rejected as an invalid date.
func NewDateKey(t time.Time) (DateKey, error) {
	if t.IsZero() {
		return DateKey{}, &InvalidArgumentError{Arg: "date", Reason: "zero or unset time"}
	}
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return DateKey{
		Start: start,
		End:   start.Add(24*time.Hour - time.Second),
	}, nil
}

// ParseDateKey parses a YYYY-MM-DD calendar date.
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateKey{}, &InvalidArgumentError{Arg: "date", Reason: "empty"}
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return DateKey{}, &InvalidArgumentError{Arg: "date", Reason: "expected YYYY-MM-DD, got " + quote(s)}
	}
	return NewDateKey(t)
}

// IsZero reports whether the key is unset.
func (k DateKey) IsZero() bool {
	return k.Start.IsZero()
}

// String returns the YYYY-MM-DD form.
func (k DateKey) String() string {
	if k.IsZero() {
		return ""
	}
	return k.Start.Format(DateLayout)
}

// StartString returns the window start, e.g. 2024-01-15T00:00:00Z.
func (k DateKey) StartString() string {
	return k.Start.Format(InstantLayout)
}

// EndString returns the window end, e.g. 2024-01-15T23:59:59Z.
func (k DateKey) EndString() string {
	return k.End.Format(InstantLayout)
}

// AddDays returns the key n days away.
func (k DateKey) AddDays(n int) DateKey {
	start := k.Start.AddDate(0, 0, n)
	return DateKey{Start: start, End: start.Add(24*time.Hour - time.Second)}
}

// After reports whether the whole day lies after now.
func (k DateKey) After(now time.Time) bool {
	return k.Start.After(now.UTC())
}

// Contains reports whether t falls inside the window.
func (k DateKey) Contains(t time.Time) bool {
	return !t.Before(k.Start) && !t.After(k.End)
}

func quote(s string) string {
	return "\"" + s + "\""
}
