package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar year+month pair with no day component.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOfTime returns the month t falls in, in t's own location.
func MonthOfTime(t time.Time) Month {
	return DateOf(t).MonthOf()
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 || !digits(parts[0]+parts[1]) {
		return Month{}, fmt.Errorf("calendar: invalid month %q", s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("calendar: invalid month %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("calendar: invalid month %q", s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// AddMonths moves n months forward (or back for negative n), rolling the
// year over. The month index is normalized through a 0–11 offset.
func (m Month) AddMonths(n int) Month {
	idx := int64(m.Year)*12 + int64(m.Month-1) + int64(n)
	y := floorDiv(idx, 12)
	return Month{Year: int(y), Month: time.Month(idx-y*12) + 1}
}

// First is the 1st day of the month.
func (m Month) First() Date {
	return Date{Year: m.Year, Month: m.Month, Day: 1}
}

// Last is the final day of the month.
func (m Month) Last() Date {
	return Date{Year: m.Year, Month: m.Month, Day: DaysIn(m.Year, m.Month)}
}

func (m Month) Contains(d Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// Key is the "YYYY-MM" form used in URLs and logs.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// String renders the header label, e.g. "March 2024".
func (m Month) String() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}
