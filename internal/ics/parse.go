package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/timefield"
)

// ParsedEvent is a VEVENT reduced to what the event store can hold.
// Start and End are canonical timestamps.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string
	Start       string
	End         string
	AllDay      bool

	// Recurring is set when the VEVENT carries an RRULE. Only the first
	// occurrence is imported.
	Recurring bool
}

// NewEvent converts p into a create request.
func (p ParsedEvent) NewEvent() model.NewEvent {
	ne := model.NewEvent{
		Title: p.Summary,
		Start: p.Start,
		End:   p.End,
	}
	if p.Description != "" {
		d := p.Description
		ne.Description = &d
	}
	return ne
}

// ParseICS parses an ICS payload. VEVENTs that cannot be converted are
// logged and skipped; src only labels log lines.
//
// Times with a Z suffix or a TZID are converted to UTC. Floating times keep
// their wall clock, the same way the form stamps Z on what the user typed.
// All-day events span 00:00:00 on their first day to 23:59:59 on their
// last.
func ParseICS(src string, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", redactURL(src))
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "source", redactURL(src), "uid", ve.Id())
			continue
		}
		if ev.Recurring {
			appLog.Warn("ics recurring event imported as a single occurrence", "uid", ev.UID)
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "source", redactURL(src), "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.UID = ve.Id()

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if out.Summary == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}
	out.Recurring = ve.GetProperty(ical.ComponentPropertyRrule) != nil

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		return parseAllDay(ve, out)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = canonical(start, isFloating(dtStart))

	end, err := ve.GetEndAt()
	switch {
	case err == nil:
		out.End = canonical(end, isFloating(ve.GetProperty(ical.ComponentPropertyDtEnd)))
	case errors.Is(err, ical.ErrorPropertyNotFound):
		out.End = out.Start
	default:
		return out, fmt.Errorf("DTEND: %w", err)
	}
	if out.End < out.Start {
		out.End = out.Start
	}
	return out, nil
}

func parseAllDay(ve *ical.VEvent, out ParsedEvent) (ParsedEvent, error) {
	start, err := ve.GetAllDayStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	first := civil(start)
	last := first

	// DTEND of an all-day event is exclusive.
	if end, err := ve.GetAllDayEndAt(); err == nil {
		if d := civil(end).AddDays(-1); d.After(first) {
			last = d
		}
	}

	out.Start = timefield.DayStart(first)
	out.End = timefield.DayEnd(last)
	return out, nil
}

// canonical renders t. Floating values keep their wall clock.
func canonical(t time.Time, floating bool) string {
	if floating {
		return timefield.Format(civil(t), timefield.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()})
	}
	return timefield.FormatTime(t)
}

// civil is the calendar date of t in t's own location.
func civil(t time.Time) calendar.Date {
	return calendar.NewDate(t.Year(), t.Month(), t.Day())
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func isFloating(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if _, ok := p.ICalParameters["TZID"]; ok {
		return false
	}
	return !strings.HasSuffix(strings.ToUpper(strings.TrimSpace(p.Value)), "Z")
}
