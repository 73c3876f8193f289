package view

import (
	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

// Phase of the calendar view.
type Phase int

const (
	Idle Phase = iota
	Fetching
)

func (p Phase) String() string {
	if p == Fetching {
		return "fetching"
	}
	return "idle"
}

// State is the calendar view state. The zero value is not usable; start
// from NewState.
type State struct {
	Month     calendar.Month
	WeekStart calendar.Weekday
	Today     calendar.Date
	Range     calendar.DisplayRange
	Phase     Phase

	// Seq identifies the most recent list request. Only a response
	// carrying this Seq and Range may replace the cache.
	Seq uint64

	// Events is the cache, replaced wholesale on every accepted fetch.
	// CacheRange is the range it was fetched for.
	Events     []model.Event
	CacheRange calendar.DisplayRange
	Fetched    bool

	// Err is the last surfaced error (*RangeFetchError or *DeleteError),
	// cleared by the next successful fetch.
	Err error
}

// NewState shows today's month. No fetch has been requested yet; dispatch
// Refresh to load events.
func NewState(today calendar.Date, weekStart calendar.Weekday) State {
	m := today.MonthOf()
	return State{
		Month:     m,
		WeekStart: weekStart,
		Today:     today,
		Range:     calendar.Range(m, weekStart),
	}
}

// Msg is any input to the view or form state machines.
type Msg interface {
	isMsg()
}

// Effect is an output of a transition. Effects needing I/O are executed by
// the Controller.
type Effect interface {
	isEffect()
}

type (
	// Navigate moves Delta months forward (negative: backward).
	Navigate struct{ Delta int }
	// GoToday jumps to the month containing State.Today.
	GoToday struct{}
	// Refresh re-fetches the current range.
	Refresh struct{}
	// DayClicked asks for the create form on Date.
	DayClicked struct{ Date calendar.Date }
	// FetchSucceeded carries a list response.
	FetchSucceeded struct {
		Seq    uint64
		Range  calendar.DisplayRange
		Events []model.Event
	}
	// FetchFailed carries a list failure.
	FetchFailed struct {
		Seq   uint64
		Range calendar.DisplayRange
		Err   error
	}
	// EventDeleted follows a successful delete.
	EventDeleted struct{ ID int64 }
	// DeleteFailed follows a failed delete.
	DeleteFailed struct {
		ID  int64
		Err error
	}
)

// EventCreated is raised by the form after a successful create and
// consumed by the view, which re-fetches.
type EventCreated struct{ ID int64 }

// MonthChanged is the notification raised whenever the view needs events
// for Range. The Controller turns it into a list request.
type MonthChanged struct {
	Seq   uint64
	Month calendar.Month
	Range calendar.DisplayRange
}

func (Navigate) isMsg()       {}
func (GoToday) isMsg()        {}
func (Refresh) isMsg()        {}
func (DayClicked) isMsg()     {}
func (FetchSucceeded) isMsg() {}
func (FetchFailed) isMsg()    {}
func (EventDeleted) isMsg()   {}
func (DeleteFailed) isMsg()   {}
func (EventCreated) isMsg()   {}

func (EventCreated) isEffect() {}
func (MonthChanged) isEffect() {}

// Apply is the calendar view transition function. Messages it does not
// handle leave the state unchanged.
func Apply(s State, msg Msg) (State, []Effect) {
	switch m := msg.(type) {
	case Navigate:
		return s.request(s.Month.AddMonths(m.Delta))
	case GoToday:
		return s.request(s.Today.MonthOf())
	case Refresh:
		return s.request(s.Month)
	case EventCreated:
		return s.request(s.Month)
	case EventDeleted:
		return s.request(s.Month)

	case DeleteFailed:
		s.Err = &DeleteError{ID: m.ID, Err: m.Err}
		return s, nil

	case DayClicked:
		return s, []Effect{OpenForm{Date: m.Date}}

	case FetchSucceeded:
		if !s.isLatest(m.Seq, m.Range) {
			return s, nil
		}
		s.Events = append([]model.Event(nil), m.Events...)
		s.CacheRange = m.Range
		s.Fetched = true
		s.Err = nil
		s.Phase = Idle
		return s, nil

	case FetchFailed:
		if !s.isLatest(m.Seq, m.Range) {
			return s, nil
		}
		s.Err = &RangeFetchError{Range: m.Range, Err: m.Err}
		s.Phase = Idle
		return s, nil
	}
	return s, nil
}

func (s State) request(m calendar.Month) (State, []Effect) {
	s.Month = m
	s.Range = calendar.Range(m, s.WeekStart)
	s.Seq++
	s.Phase = Fetching
	return s, []Effect{MonthChanged{Seq: s.Seq, Month: m, Range: s.Range}}
}

func (s State) isLatest(seq uint64, r calendar.DisplayRange) bool {
	return seq == s.Seq && r == s.Range
}

// DayCell is one rendered day of the grid.
type DayCell struct {
	Date           calendar.Date
	IsCurrentMonth bool
	IsToday        bool
	Events         []model.Event
}

// Cells derives the grid for the current month from the cache.
func (s State) Cells() []DayCell {
	byDay, _ := Bucket(s.Events)
	days := s.Range.Days()
	cells := make([]DayCell, 0, len(days))
	for _, d := range days {
		cells = append(cells, DayCell{
			Date:           d,
			IsCurrentMonth: s.Month.Contains(d),
			IsToday:        d == s.Today,
			Events:         byDay[d],
		})
	}
	return cells
}

// Weeks splits Cells into rows of seven.
func (s State) Weeks() [][]DayCell {
	cells := s.Cells()
	rows := make([][]DayCell, 0, len(cells)/calendar.DaysPerWeek)
	for i := 0; i < len(cells); i += calendar.DaysPerWeek {
		rows = append(rows, cells[i : i+calendar.DaysPerWeek : i+calendar.DaysPerWeek])
	}
	return rows
}
