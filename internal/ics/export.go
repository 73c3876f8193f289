// Package ics converts between stored events and iCalendar data: export
// of a range for calendar apps, and import of ICS files or feeds.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/timefield"
)

// ProductID identifies exported calendars.
const ProductID = "-//monthcal//monthcal//EN"

// ExportOptions controls Export.
type ExportOptions struct {
	// Name is written as X-WR-CALNAME when set.
	Name string
	// Domain qualifies event UIDs (id@Domain). Defaults to "monthcal".
	Domain string
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now time.Time
}

// UID is the iCalendar UID of a stored event.
func UID(id int64, domain string) string {
	if domain == "" {
		domain = "monthcal"
	}
	return fmt.Sprintf("event-%d@%s", id, domain)
}

// Export renders events as a PUBLISH calendar. Events whose timestamps do
// not parse are logged and left out.
func Export(events []model.Event, opts ExportOptions) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	skipped := 0
	for _, ev := range events {
		start, err := timefield.ParseTimestamp(ev.StartTime)
		if err != nil {
			appLog.Error("ics export: skipping event", err, "id", ev.ID)
			skipped++
			continue
		}
		end, err := timefield.ParseTimestamp(ev.EndTime)
		if err != nil {
			appLog.Error("ics export: skipping event", err, "id", ev.ID)
			skipped++
			continue
		}

		ve := cal.AddEvent(UID(ev.ID, opts.Domain))
		ve.SetDtStampTime(now)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(ev.Title)
		if ev.Description != nil && *ev.Description != "" {
			ve.SetDescription(*ev.Description)
		}
	}

	appLog.Debug("ics export", "events", len(events)-skipped, "skipped", skipped)
	return cal.Serialize()
}
