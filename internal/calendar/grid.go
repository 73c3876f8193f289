package calendar

import "strings"

// DaysPerWeek is the number of grid columns.
const DaysPerWeek = 7

// DefaultWeekStart is the first grid column unless configured otherwise.
const DefaultWeekStart = Sunday

// ParseWeekStart maps the config value ("sunday"/"monday") to a Weekday.
// Anything else yields DefaultWeekStart.
func ParseWeekStart(s string) Weekday {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "mon":
		return Monday
	default:
		return DefaultWeekStart
	}
}

// WeekdayLabels returns the column headers starting at weekStart.
func WeekdayLabels(weekStart Weekday) []string {
	out := make([]string, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		out = append(out, shiftWeekday(weekStart, i).String())
	}
	return out
}

// DisplayRange is the week-aligned span rendered for a month. Both ends are
// inclusive.
type DisplayRange struct {
	Start Date
	End   Date
}

// Range computes the display range of m: Start is the first day of the week
// containing the 1st, End the last day of the week containing the month's
// last day.
func Range(m Month, weekStart Weekday) DisplayRange {
	first := m.First()
	lead := int(floorMod(int64(first.Weekday()-weekStart), DaysPerWeek))

	last := m.Last()
	weekEnd := shiftWeekday(weekStart, DaysPerWeek-1)
	trail := int(floorMod(int64(weekEnd-last.Weekday()), DaysPerWeek))

	return DisplayRange{
		Start: first.AddDays(-lead),
		End:   last.AddDays(trail),
	}
}

// Days returns every date of the display range of m, in order.
func Days(m Month, weekStart Weekday) []Date {
	return Range(m, weekStart).Days()
}

// Grid returns the display range of m split into weeks of seven days.
func Grid(m Month, weekStart Weekday) [][]Date {
	days := Days(m, weekStart)
	rows := make([][]Date, 0, len(days)/DaysPerWeek)
	for i := 0; i < len(days); i += DaysPerWeek {
		rows = append(rows, days[i : i+DaysPerWeek : i+DaysPerWeek])
	}
	return rows
}

// Len is the number of days in the range.
func (r DisplayRange) Len() int {
	n := r.End.DayNumber() - r.Start.DayNumber() + 1
	if n < 0 {
		return 0
	}
	return int(n)
}

// Weeks is the number of grid rows.
func (r DisplayRange) Weeks() int {
	return r.Len() / DaysPerWeek
}

// Days lists the dates from Start to End inclusive.
func (r DisplayRange) Days() []Date {
	n := r.Len()
	out := make([]Date, 0, n)
	start := r.Start.DayNumber()
	for i := 0; i < n; i++ {
		out = append(out, FromDayNumber(start+int64(i)))
	}
	return out
}

func (r DisplayRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DisplayRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

func shiftWeekday(w Weekday, n int) Weekday {
	return Weekday(floorMod(int64(int(w)-1+n), DaysPerWeek) + 1)
}
