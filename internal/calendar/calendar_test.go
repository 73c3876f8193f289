package calendar

import (
	"testing"
	"time"
)

func TestDayNumberMatchesTimePackage(t *testing.T) {
	t.Parallel()

	// Walk a few centuries, including 1900 (not leap) and 2000 (leap).
	start := time.Date(1890, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 200*366; i += 13 {
		tm := start.AddDate(0, 0, i)
		d := DateOf(tm)
		want := (tm.Unix() - 12*3600) / 86400
		if got := d.DayNumber(); got != want {
			t.Fatalf("%s: DayNumber = %d, want %d", d, got, want)
		}
		if back := FromDayNumber(want); back != d {
			t.Fatalf("FromDayNumber(%d) = %s, want %s", want, back, d)
		}
		if got, want := d.Weekday(), isoWeekday(tm.Weekday()); got != want {
			t.Fatalf("%s: Weekday = %s, want %s", d, got, want)
		}
	}
}

func isoWeekday(w time.Weekday) Weekday {
	if w == time.Sunday {
		return Sunday
	}
	return Weekday(w)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if d != NewDate(2024, time.February, 29) {
		t.Fatalf("unexpected date %s", d)
	}

	for _, bad := range []string{"2023-02-29", "2024-13-01", "2024-1-01", "24-01-01", "2024/01/01", "abcd-ef-gh", "+024-01-01", "2024-+1-01", "2024-01--1"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestMonthAddMonthsRollsYear(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from  Month
		delta int
		want  Month
	}{
		{Month{2024, time.December}, 1, Month{2025, time.January}},
		{Month{2024, time.January}, -1, Month{2023, time.December}},
		{Month{2024, time.March}, -27, Month{2021, time.December}},
		{Month{2024, time.March}, 24, Month{2026, time.March}},
		{Month{0, time.January}, -1, Month{-1, time.December}},
	}
	for _, tc := range cases {
		if got := tc.from.AddMonths(tc.delta); got != tc.want {
			t.Errorf("%s.AddMonths(%d) = %s, want %s", tc.from.Key(), tc.delta, got.Key(), tc.want.Key())
		}
	}
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	m, err := ParseMonth("2026-03")
	if err != nil {
		t.Fatalf("ParseMonth returned error: %v", err)
	}
	if m != (Month{2026, time.March}) {
		t.Fatalf("unexpected month %s", m.Key())
	}
	if m.String() != "March 2026" {
		t.Errorf("unexpected label %q", m.String())
	}
	for _, bad := range []string{"2026-99", "2026-3", "March", "", "+026-03", "2026-+3"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRangeMarch2024SundayStart(t *testing.T) {
	t.Parallel()

	// March 1st 2024 is a Friday and March 31st a Sunday, so the grid runs
	// from Sunday Feb 25 to Saturday Apr 6.
	r := Range(Month{2024, time.March}, Sunday)
	if r.Start != NewDate(2024, time.February, 25) {
		t.Errorf("start = %s, want 2024-02-25", r.Start)
	}
	if r.End != NewDate(2024, time.April, 6) {
		t.Errorf("end = %s, want 2024-04-06", r.End)
	}
	if r.Len() != 42 || r.Weeks() != 6 {
		t.Errorf("len = %d weeks = %d, want 42 / 6", r.Len(), r.Weeks())
	}
}

func TestRangeKnownLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		month     Month
		weekStart Weekday
		start     Date
		end       Date
		days      int
	}{
		{"april 2024 sunday", Month{2024, time.April}, Sunday, NewDate(2024, time.March, 31), NewDate(2024, time.May, 4), 35},
		{"february 2026 sunday fits four rows", Month{2026, time.February}, Sunday, NewDate(2026, time.February, 1), NewDate(2026, time.February, 28), 28},
		{"march 2024 monday", Month{2024, time.March}, Monday, NewDate(2024, time.February, 26), NewDate(2024, time.March, 31), 35},
		{"september 2024 monday", Month{2024, time.September}, Monday, NewDate(2024, time.August, 26), NewDate(2024, time.October, 6), 42},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := Range(tc.month, tc.weekStart)
			if r.Start != tc.start || r.End != tc.end {
				t.Fatalf("range = %s, want %s..%s", r, tc.start, tc.end)
			}
			if len(r.Days()) != tc.days {
				t.Fatalf("got %d days, want %d", len(r.Days()), tc.days)
			}
		})
	}
}

func TestRangePropertiesForManyMonths(t *testing.T) {
	t.Parallel()

	for _, ws := range []Weekday{Sunday, Monday} {
		m := Month{1899, time.January}
		for i := 0; i < 12*250; i++ {
			r := Range(m, ws)
			days := r.Days()

			if len(days) == 0 || len(days)%DaysPerWeek != 0 {
				t.Fatalf("%s: length %d not a positive multiple of 7", m.Key(), len(days))
			}
			if w := len(days) / DaysPerWeek; w < 4 || w > 6 {
				t.Fatalf("%s: %d rows", m.Key(), w)
			}
			if days[0].Weekday() != ws {
				t.Fatalf("%s: grid starts on %s, want %s", m.Key(), days[0].Weekday(), ws)
			}
			for j := 1; j < len(days); j++ {
				if days[j].DayNumber() != days[j-1].DayNumber()+1 {
					t.Fatalf("%s: gap or repeat between %s and %s", m.Key(), days[j-1], days[j])
				}
			}
			if !r.Contains(m.First()) || !r.Contains(m.Last()) {
				t.Fatalf("%s: range %s does not cover the month", m.Key(), r)
			}
			m = m.AddMonths(1)
		}
	}
}

func TestGridRows(t *testing.T) {
	t.Parallel()

	rows := Grid(Month{2024, time.March}, Sunday)
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != DaysPerWeek {
			t.Fatalf("row %d has %d days", i, len(row))
		}
	}
	if rows[0][5] != NewDate(2024, time.March, 1) {
		t.Errorf("March 1st should be in the Friday column, got %s", rows[0][5])
	}

	second := rows[1][0]
	_ = append(rows[0], NewDate(1999, time.January, 1))
	if rows[1][0] != second {
		t.Errorf("appending to the first row overwrote the second: %s", rows[1][0])
	}
}

func TestWeekdayLabels(t *testing.T) {
	t.Parallel()

	got := WeekdayLabels(Sunday)
	want := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sunday labels = %v, want %v", got, want)
		}
	}
	if got := WeekdayLabels(Monday); got[0] != "Mon" || got[6] != "Sun" {
		t.Fatalf("monday labels = %v", got)
	}
	if ParseWeekStart("Monday") != Monday || ParseWeekStart("whatever") != Sunday {
		t.Fatal("ParseWeekStart mapping wrong")
	}
}
