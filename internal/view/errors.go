package view

import (
	"fmt"

	"monthcal/internal/calendar"
)

// RangeFetchError reports a failed list request. The cache keeps its
// previous contents.
type RangeFetchError struct {
	Range calendar.DisplayRange
	Err   error
}

func (e *RangeFetchError) Error() string {
	return fmt.Sprintf("view: fetch events for %s: %v", e.Range, e.Err)
}

func (e *RangeFetchError) Unwrap() error { return e.Err }

// ValidationError blocks a form submit. Field names the offending input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CreateError reports a failed create request; the draft is kept.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("view: create event: %v", e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// DeleteError reports a failed delete request.
type DeleteError struct {
	ID  int64
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("view: delete event %d: %v", e.ID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// MalformedEventError marks a fetched event whose start time does not
// parse. Such events are left out of every day.
type MalformedEventError struct {
	ID    int64
	Value string
	Err   error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("view: event %d has malformed start time %q: %v", e.ID, e.Value, e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }
