// Package timefield converts between the form's date + time-of-day fields
// and the canonical timestamp strings exchanged with the event store.
//
// Canonical timestamps look like 2024-04-10T09:00:00Z: the civil date, a
// literal T, the wall-clock time and the fixed offset marker Z. Encoding is
// plain string assembly; the time of day is never passed through a local
// time zone, so 09:00 entered in the form is 09:00 on the wire.
//
// The Z marker is stamped on whatever wall-clock time the user typed, which
// is what existing event stores hold. Evening events created far from
// UTC can therefore land on a different day for other viewers. This is
// a known limitation, not something this package corrects.
package timefield

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"monthcal/internal/calendar"
)

// Layout is the canonical timestamp layout.
const Layout = "2006-01-02T15:04:05Z"

// OffsetMarker is appended to every encoded timestamp.
const OffsetMarker = "Z"

var ErrInvalidTimeOfDay = errors.New("timefield: invalid time of day")

// TimeOfDay is a 24-hour wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (a single-digit hour is accepted).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	tod := TimeOfDay{Hour: h, Minute: m}
	if !tod.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return tod, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// Minutes is the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Format renders date + time of day as a canonical timestamp.
func Format(d calendar.Date, tod TimeOfDay) string {
	return fmt.Sprintf("%sT%02d:%02d:00%s", d, tod.Hour, tod.Minute, OffsetMarker)
}

// Encode combines the reference date with the start and end time-of-day
// strings. Dates must have a four-digit year so the result parses back.
func Encode(d calendar.Date, startTOD, endTOD string) (start, end string, err error) {
	if !d.Valid() || d.Year < 0 || d.Year > 9999 {
		return "", "", fmt.Errorf("timefield: invalid date %s", d)
	}
	st, err := ParseTimeOfDay(startTOD)
	if err != nil {
		return "", "", err
	}
	et, err := ParseTimeOfDay(endTOD)
	if err != nil {
		return "", "", err
	}
	return Format(d, st), Format(d, et), nil
}

// Decode splits a timestamp back into its calendar date and "HH:MM".
// For every value Encode produces, Decode returns the fields it was given.
func Decode(ts string) (calendar.Date, string, error) {
	t, err := ParseTimestamp(ts)
	if err != nil {
		return calendar.Date{}, "", err
	}
	return calendar.DateOf(t), TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}.String(), nil
}

// ParseTimestamp parses a canonical timestamp. Any RFC 3339 value is
// accepted as well (fractional seconds, numeric offsets) and normalized to
// UTC, the offset the canonical form asserts.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(ts))
	if err != nil {
		return time.Time{}, fmt.Errorf("timefield: invalid timestamp %q: %w", ts, err)
	}
	return t.UTC(), nil
}

// FormatTime renders an instant in canonical form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(Layout)
}

// DayStart / DayEnd are the first and last canonical second of a day.
func DayStart(d calendar.Date) string {
	return d.String() + "T00:00:00" + OffsetMarker
}

func DayEnd(d calendar.Date) string {
	return d.String() + "T23:59:59" + OffsetMarker
}

// RangeBounds renders a display range as the inclusive canonical bounds
// passed to the store's list operation.
func RangeBounds(r calendar.DisplayRange) (start, end string) {
	return DayStart(r.Start), DayEnd(r.End)
}

// WallClock reads t on the wall clock of loc and relabels that reading as
// UTC, which is how canonical timestamps record the time a user typed.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	w := t.In(loc)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC)
}
