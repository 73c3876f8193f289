package model

// Event is a single timed calendar event as held by the event store.
//
// StartTime / EndTime are canonical timestamps (see internal/timefield),
// passed through verbatim. A malformed value reaches the view, which drops
// that one event.
type Event struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
}

// DescriptionOrEmpty returns the description, or "" when none was given.
func (e Event) DescriptionOrEmpty() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// NewEvent is the create payload sent to the store.
type NewEvent struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
}
