package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/store"
	"monthcal/internal/timefield"
)

const defaultFetchTimeout = 30 * time.Second

// errSuperseded is reported for a list request that was overtaken before
// it reached the store.
var errSuperseded = errors.New("view: request superseded")

// Controller runs the view and form state machines against an EventStore.
// All transitions happen under one mutex; store calls happen outside it.
type Controller struct {
	store store.EventStore
	now   func() time.Time
	loc   *time.Location

	weekStart    calendar.Weekday
	defaultStart string
	defaultEnd   string
	fetchTimeout time.Duration

	mu    sync.Mutex
	state State
	form  FormState

	// in-flight list request
	cancelFetch context.CancelFunc
	cancelSeq   uint64
}

type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the zone used to decide which day is today.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithWeekStart(ws calendar.Weekday) Option {
	return func(c *Controller) { c.weekStart = ws }
}

// WithFormDefaults sets the times a freshly opened form starts with.
func WithFormDefaults(start, end string) Option {
	return func(c *Controller) {
		c.defaultStart = start
		c.defaultEnd = end
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewController shows today's month. Nothing is fetched until Refresh is
// dispatched.
func NewController(st store.EventStore, opts ...Option) *Controller {
	c := &Controller{
		store:        st,
		now:          time.Now,
		loc:          time.Local,
		weekStart:    calendar.DefaultWeekStart,
		defaultStart: "09:00",
		defaultEnd:   "10:00",
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = NewState(c.today(), c.weekStart)
	c.form = NewFormState(c.defaultStart, c.defaultEnd)
	return c
}

func (c *Controller) today() calendar.Date {
	return calendar.Today(c.now(), c.loc)
}

// Dispatch applies msg and everything it triggers internally (a clicked
// day opens the form, a created event refreshes the view). The returned
// effects need I/O; pass each to Execute.
func (c *Controller) Dispatch(msg Msg) []Effect {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Today = c.today()

	var pending []Effect
	queue := []Msg{msg}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		var effects []Effect
		if fm, ok := m.(FormMsg); ok {
			c.form, effects = ApplyForm(c.form, fm)
		} else {
			c.state, effects = c.applyView(m)
		}

		for _, e := range effects {
			switch e := e.(type) {
			case OpenForm:
				queue = append(queue, e)
			case EventCreated:
				appLog.Info("event created", "id", e.ID)
				queue = append(queue, e)
			default:
				pending = append(pending, e)
			}
		}
	}
	return pending
}

// applyView wraps Apply with logging of accepted and discarded results.
func (c *Controller) applyView(m Msg) (State, []Effect) {
	switch m := m.(type) {
	case FetchSucceeded:
		if !c.state.isLatest(m.Seq, m.Range) {
			appLog.Debug("discarding superseded fetch", "seq", m.Seq, "range", m.Range.String(), "latest", c.state.Seq)
			return c.state, nil
		}
		_, bad := Bucket(m.Events)
		logMalformed(bad)
		appLog.Debug("events loaded", "range", m.Range.String(), "count", len(m.Events))
	case FetchFailed:
		if !c.state.isLatest(m.Seq, m.Range) {
			appLog.Debug("discarding superseded fetch failure", "seq", m.Seq, "range", m.Range.String())
			return c.state, nil
		}
		appLog.Error("event fetch failed", m.Err, "range", m.Range.String())
	case DeleteFailed:
		appLog.Error("event delete failed", m.Err, "id", m.ID)
	}
	return Apply(c.state, m)
}

// Execute performs one effect and returns the message reporting its
// outcome, or nil when the effect needs no I/O.
func (c *Controller) Execute(ctx context.Context, eff Effect) Msg {
	switch e := eff.(type) {
	case MonthChanged:
		return c.fetch(ctx, e)
	case CreateRequest:
		return c.create(ctx, e)
	}
	return nil
}

func (c *Controller) fetch(ctx context.Context, e MonthChanged) Msg {
	c.mu.Lock()
	if e.Seq < c.state.Seq || e.Seq < c.cancelSeq {
		c.mu.Unlock()
		return FetchFailed{Seq: e.Seq, Range: e.Range, Err: errSuperseded}
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	c.cancelFetch = cancel
	c.cancelSeq = e.Seq
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.cancelSeq == e.Seq {
			c.cancelFetch = nil
		}
		c.mu.Unlock()
	}()

	start, end := timefield.RangeBounds(e.Range)
	appLog.Debug("fetching events", "seq", e.Seq, "month", e.Month.Key(), "start", start, "end", end)

	events, err := c.store.ListEvents(fctx, start, end)
	if err != nil {
		return FetchFailed{Seq: e.Seq, Range: e.Range, Err: err}
	}
	return FetchSucceeded{Seq: e.Seq, Range: e.Range, Events: events}
}

func (c *Controller) create(ctx context.Context, e CreateRequest) Msg {
	id, err := c.store.CreateEvent(ctx, e.Title, e.Description, e.Start, e.End)
	if err != nil {
		appLog.Error("event create failed", err, "title", e.Title, "start", e.Start)
		return CreateFailed{Err: err}
	}
	return CreateSucceeded{ID: id}
}

// Delete removes an event and returns the outcome message.
func (c *Controller) Delete(ctx context.Context, id int64) Msg {
	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return DeleteFailed{ID: id, Err: err}
	}
	appLog.Info("event deleted", "id", id)
	return EventDeleted{ID: id}
}

// Run dispatches msg and synchronously executes every resulting effect
// until the machines settle.
func (c *Controller) Run(ctx context.Context, msg Msg) {
	effects := c.Dispatch(msg)
	for len(effects) > 0 {
		e := effects[0]
		effects = effects[1:]
		if next := c.Execute(ctx, e); next != nil {
			effects = append(effects, c.Dispatch(next)...)
		}
	}
}

// Close cancels an in-flight list request.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
}

// Snapshot returns a copy of the view state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Today = c.today()
	s := c.state
	s.Events = append(s.Events[:0:0], s.Events...)
	return s
}

// Form returns the form state.
func (c *Controller) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Cells returns the grid of the current month.
func (c *Controller) Cells() []DayCell {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Today = c.today()
	return c.state.Cells()
}
