package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/view"
)

//go:embed templates/calendar.html
var templateFS embed.FS

func mustParsePage() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/calendar.html"))
}

type pageEvent struct {
	Time  string
	Title string
}

type pageDay struct {
	Day     int
	Date    string
	Outside bool
	Today   bool
	Events  []pageEvent
}

type pageData struct {
	Title    string
	Month    string
	Prev     string
	Next     string
	Weekdays []string
	Weeks    [][]pageDay
	Notice   string
}

// handleCalendarPage renders one month as HTML. The root element carries
// data-ready="true" once rendered, which the snapshot capture waits for.
//
// GET /calendar?month=2024-03
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	today := calendar.Today(s.now(), s.loc)
	month := today.MonthOf()
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := calendar.ParseMonth(raw)
		if err != nil {
			http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		month = m
	}

	ctrl := view.NewController(s.store,
		view.WithClock(s.now),
		view.WithLocation(s.loc),
		view.WithWeekStart(s.weekStart),
	)
	defer ctrl.Close()
	ctrl.Run(r.Context(), view.Navigate{Delta: monthsBetween(today.MonthOf(), month)})
	st := ctrl.Snapshot()

	data := pageData{
		Title:    st.Month.String(),
		Month:    st.Month.Key(),
		Prev:     st.Month.AddMonths(-1).Key(),
		Next:     st.Month.AddMonths(1).Key(),
		Weekdays: calendar.WeekdayLabels(s.weekStart),
	}
	if st.Err != nil {
		data.Notice = "Events could not be loaded."
	}
	for _, week := range st.Weeks() {
		row := make([]pageDay, 0, len(week))
		for _, cell := range week {
			d := pageDay{
				Day:     cell.Date.Day,
				Date:    cell.Date.String(),
				Outside: !cell.IsCurrentMonth,
				Today:   cell.IsToday,
			}
			for _, ev := range cell.Events {
				d.Events = append(d.Events, pageEvent{Time: view.TimeLabel(ev), Title: ev.Title})
			}
			row = append(row, d)
		}
		data.Weeks = append(data.Weeks, row)
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		appLog.Error("calendar page render failed", err, "month", data.Month)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func monthsBetween(from, to calendar.Month) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month)
}
