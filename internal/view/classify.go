// Package view holds the month view engine: event classification, the
// calendar and form state machines, and the Controller that runs them
// against an event store.
//
// State transitions are pure functions (Apply, ApplyForm) returning the new
// state and a list of effects. The Controller executes effects that need
// I/O and feeds their outcome back as messages.
package view

import (
	"sort"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/timefield"
)

type placed struct {
	ev    model.Event
	start time.Time
	day   calendar.Date
}

// place parses every start time once. Malformed events are returned
// separately.
func place(events []model.Event) ([]placed, []*MalformedEventError) {
	out := make([]placed, 0, len(events))
	var bad []*MalformedEventError
	for _, ev := range events {
		t, err := timefield.ParseTimestamp(ev.StartTime)
		if err != nil {
			bad = append(bad, &MalformedEventError{ID: ev.ID, Value: ev.StartTime, Err: err})
			continue
		}
		out = append(out, placed{ev: ev, start: t, day: calendar.DateOf(t)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].start.Equal(out[j].start) {
			return out[i].start.Before(out[j].start)
		}
		return out[i].ev.ID < out[j].ev.ID
	})
	return out, bad
}

// EventsOn returns the events starting on day d, ordered by start time and
// then id. Events with an unparsable start time are logged and skipped.
func EventsOn(events []model.Event, d calendar.Date) []model.Event {
	ps, bad := place(events)
	logMalformed(bad)

	var out []model.Event
	for _, p := range ps {
		if p.day == d {
			out = append(out, p.ev)
		}
	}
	return out
}

// Bucket classifies events by start day in one pass. The per-day slices
// are ordered like EventsOn. Malformed events are reported, not logged.
func Bucket(events []model.Event) (map[calendar.Date][]model.Event, []*MalformedEventError) {
	ps, bad := place(events)
	byDay := make(map[calendar.Date][]model.Event)
	for _, p := range ps {
		byDay[p.day] = append(byDay[p.day], p.ev)
	}
	return byDay, bad
}

func logMalformed(bad []*MalformedEventError) {
	for _, e := range bad {
		appLog.Error("skipping event with malformed start time", e.Err, "id", e.ID, "start_time", e.Value)
	}
}

// TimeLabel is the "HH:MM" shown in front of an event title, or "" when
// the start time does not parse.
func TimeLabel(ev model.Event) string {
	_, tod, err := timefield.Decode(ev.StartTime)
	if err != nil {
		return ""
	}
	return tod
}
