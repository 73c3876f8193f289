// Package store defines the event store boundary (list / create / delete)
// and its implementations: in-memory, JSON file, Postgres and an HTTP
// client for a remote calendard.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"monthcal/internal/model"
)

var (
	// ErrNotFound is returned by DeleteEvent for an unknown id.
	ErrNotFound = errors.New("store: event not found")
	// ErrInvalidEvent is returned when a create request is missing a title
	// or a timestamp.
	ErrInvalidEvent = errors.New("store: invalid event")
)

// EventStore is the persistence boundary used by the calendar view.
//
// ListEvents returns events whose start_time lies in [startRange, endRange]
// (compared as canonical timestamp strings), ordered by start_time.
type EventStore interface {
	ListEvents(ctx context.Context, startRange, endRange string) ([]model.Event, error)
	CreateEvent(ctx context.Context, title string, description *string, start, end string) (int64, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// validateNew performs the minimal checks every backend shares.
func validateNew(title, start, end string) error {
	if strings.TrimSpace(title) == "" {
		return errors.Join(ErrInvalidEvent, errors.New("title is required"))
	}
	if start == "" || end == "" {
		return errors.Join(ErrInvalidEvent, errors.New("start and end are required"))
	}
	return nil
}

func inRange(ev model.Event, startRange, endRange string) bool {
	return ev.StartTime >= startRange && ev.StartTime <= endRange
}

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartTime != events[j].StartTime {
			return events[i].StartTime < events[j].StartTime
		}
		return events[i].ID < events[j].ID
	})
}

func cloneDescription(d *string) *string {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
