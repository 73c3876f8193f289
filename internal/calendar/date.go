// Package calendar implements the proleptic Gregorian date arithmetic behind
// the month grid: civil dates, months, week alignment and display ranges.
//
// Dates are converted through a day count relative to 1970-01-01 instead of
// time.Time so that results never depend on a time zone, DST transitions or
// a date library's normalization rules.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Weekday uses ISO numbering: Monday = 1 ... Sunday = 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayShort = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayShort[w]
}

// Date is a civil calendar date with no time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date; it does not normalize out-of-range fields.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the civil date of now in loc (time.Local when nil).
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' || !digits(s[0:4]+s[5:7]+s[8:10]) {
		return Date{}, fmt.Errorf("calendar: invalid date %q", s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[5:7])
	d, err3 := strconv.Atoi(s[8:10])
	if err := errors.Join(err1, err2, err3); err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	out := Date{Year: y, Month: time.Month(m), Day: d}
	if !out.Valid() {
		return Date{}, fmt.Errorf("calendar: invalid date %q", s)
	}
	return out, nil
}

// digits reports whether s is made of ASCII digits only; strconv.Atoi
// would also take a sign.
func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Valid reports whether the fields name a real calendar day.
func (d Date) Valid() bool {
	if d.Month < time.January || d.Month > time.December {
		return false
	}
	return d.Day >= 1 && d.Day <= DaysIn(d.Year, d.Month)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayNumber is the number of days since 1970-01-01.
func (d Date) DayNumber() int64 {
	return daysFromCivil(int64(d.Year), int64(d.Month), int64(d.Day))
}

// FromDayNumber is the inverse of DayNumber.
func FromDayNumber(n int64) Date {
	y, m, d := civilFromDays(n)
	return Date{Year: int(y), Month: time.Month(m), Day: int(d)}
}

func (d Date) AddDays(n int) Date {
	return FromDayNumber(d.DayNumber() + int64(n))
}

// Weekday returns the ISO weekday. 1970-01-01 was a Thursday.
func (d Date) Weekday() Weekday {
	n := d.DayNumber()
	return Weekday(floorMod(n+3, 7) + 1)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	a, b := d.DayNumber(), o.DayNumber()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// MonthOf returns the calendar month the date belongs to.
func (d Date) MonthOf() Month {
	return Month{Year: d.Year, Month: d.Month}
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// daysFromCivil and civilFromDays follow Howard Hinnant's era-based
// algorithms; eras are 400-year blocks of 146097 days starting at March 1.
func daysFromCivil(y, m, d int64) int64 {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int64) (y, m, d int64) {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
