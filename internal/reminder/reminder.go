// Package reminder notifies about events that are about to start.
//
// A Checker looks at a short window ahead of "now" on every tick and hands
// each event in it to a Notifier exactly once per start time. Ticks are
// driven by a robfig/cron schedule ("@every 1m" by default).
package reminder

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
	"monthcal/internal/timefield"
)

// DefaultLead is how far ahead of an event's start a reminder fires.
const DefaultLead = 5 * time.Minute

// Reminder is one notification about an upcoming event.
type Reminder struct {
	Event model.Event
	// In is the time left until the event starts, never negative.
	In time.Duration
}

func (r Reminder) Title() string { return "Upcoming Event" }

func (r Reminder) Body() string {
	return fmt.Sprintf("%s is starting soon!", r.Event.Title)
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, r Reminder) error {
	appLog.Info(r.Body(),
		"id", r.Event.ID,
		"start", r.Event.StartTime,
		"in_minutes", int(r.In.Round(time.Minute).Minutes()),
	)
	return nil
}

// BellNotifier rings the terminal bell and prints one line per reminder.
type BellNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellNotifier(w io.Writer) *BellNotifier {
	return &BellNotifier{w: w}
}

func (b *BellNotifier) Notify(_ context.Context, r Reminder) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := fmt.Fprintf(b.w, "\a%s: %s\n", r.Title(), r.Body())
	return err
}

// Multi fans a reminder out to several notifiers. Every notifier is
// tried; the first error is returned.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type sentKey struct {
	id    int64
	start string
}

// Checker finds events starting within the lead window.
type Checker struct {
	store    store.EventStore
	notifier Notifier
	lead     time.Duration
	loc      *time.Location

	mu   sync.Mutex
	sent map[sentKey]struct{}
}

type Option func(*Checker)

// WithLead sets the look-ahead window.
func WithLead(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.lead = d
		}
	}
}

// WithLocation sets the zone whose wall clock is compared with event
// timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Checker) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func NewChecker(st store.EventStore, n Notifier, opts ...Option) *Checker {
	c := &Checker{
		store:    st,
		notifier: n,
		lead:     DefaultLead,
		loc:      time.Local,
		sent:     make(map[sentKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check notifies every event whose start lies in [now, now+lead] and has
// not been notified before. It returns the number of reminders sent.
func (c *Checker) Check(ctx context.Context, now time.Time) (int, error) {
	wall := timefield.WallClock(now, c.loc)
	from := timefield.FormatTime(wall)
	to := timefield.FormatTime(wall.Add(c.lead))

	events, err := c.store.ListEvents(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("reminder: list events: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.forget(from)

	sent := 0
	for _, ev := range events {
		key := sentKey{id: ev.ID, start: ev.StartTime}
		if _, done := c.sent[key]; done {
			continue
		}
		start, err := timefield.ParseTimestamp(ev.StartTime)
		if err != nil {
			appLog.Warn("reminder skipped malformed event", "id", ev.ID, "start", ev.StartTime)
			continue
		}
		in := start.Sub(wall)
		if in < 0 {
			in = 0
		}
		if err := c.notifier.Notify(ctx, Reminder{Event: ev, In: in}); err != nil {
			appLog.Error("reminder delivery failed", err, "id", ev.ID)
			continue
		}
		c.sent[key] = struct{}{}
		sent++
	}
	return sent, nil
}

// forget drops bookkeeping for events that already started.
func (c *Checker) forget(before string) {
	for k := range c.sent {
		if k.start < before {
			delete(c.sent, k)
		}
	}
}

// Scheduler runs a Checker on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	checker *Checker
	now     func() time.Time
	timeout time.Duration
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 1m") and registers the check job. Call Start to begin.
func NewScheduler(spec string, c *Checker) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(c.loc)),
		checker: c,
		now:     time.Now,
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("reminder: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.checker.Check(ctx, s.now())
	if err != nil {
		appLog.Error("reminder check failed", err)
		return
	}
	if n > 0 {
		appLog.Debug("reminders sent", "count", n)
	}
}

// Start runs the schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("reminder scheduler started", "lead", s.checker.lead.String())
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Info("reminder scheduler stopped")
	}()
}
