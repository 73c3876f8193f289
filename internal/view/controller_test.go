package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

var fixedNow = time.Date(2024, time.April, 10, 12, 0, 0, 0, time.UTC)

func newTestController(st store.EventStore) *Controller {
	return NewController(st,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithWeekStart(calendar.Sunday),
	)
}

// countingStore counts list calls and can be told to fail.
type countingStore struct {
	*store.Memory
	lists      atomic.Int32
	failList   atomic.Bool
	failCreate atomic.Bool
}

func (s *countingStore) ListEvents(ctx context.Context, start, end string) ([]model.Event, error) {
	s.lists.Add(1)
	if s.failList.Load() {
		return nil, errors.New("backend unavailable")
	}
	return s.Memory.ListEvents(ctx, start, end)
}

func (s *countingStore) CreateEvent(ctx context.Context, title string, description *string, start, end string) (int64, error) {
	if s.failCreate.Load() {
		return 0, errors.New("write failed")
	}
	return s.Memory.CreateEvent(ctx, title, description, start, end)
}

// gatedStore holds every list call until the test releases it, so
// responses can be delivered out of order.
type gatedStore struct {
	started chan listCall
}

type listCall struct {
	ctx     context.Context
	start   string
	release chan []model.Event
}

func newGatedStore() *gatedStore {
	return &gatedStore{started: make(chan listCall, 8)}
}

func (g *gatedStore) ListEvents(ctx context.Context, start, end string) ([]model.Event, error) {
	call := listCall{ctx: ctx, start: start, release: make(chan []model.Event)}
	g.started <- call
	// Respond even when cancelled: the transport may not honour it.
	return <-call.release, nil
}

func (g *gatedStore) CreateEvent(context.Context, string, *string, string, string) (int64, error) {
	return 0, errors.New("not supported")
}

func (g *gatedStore) DeleteEvent(context.Context, int64) error {
	return errors.New("not supported")
}

func TestControllerRefreshLoadsEvents(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemoryWith(
		model.Event{ID: 1, Title: "a", StartTime: "2024-04-10T09:00:00Z", EndTime: "2024-04-10T10:00:00Z"},
		model.Event{ID: 2, Title: "outside", StartTime: "2024-06-10T09:00:00Z", EndTime: "2024-06-10T10:00:00Z"},
	)}
	c := newTestController(st)

	c.Run(context.Background(), Refresh{})

	s := c.Snapshot()
	if s.Phase != Idle || !s.Fetched || len(s.Events) != 1 {
		t.Fatalf("state after refresh: %+v", s)
	}
	for _, cell := range c.Cells() {
		if cell.IsToday && (cell.Date != april10 || len(cell.Events) != 1) {
			t.Fatalf("today cell = %+v", cell)
		}
	}
}

func TestControllerForwardBackFetchesTwice(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemory()}
	c := newTestController(st)
	orig := c.Snapshot().Month

	c.Run(context.Background(), Navigate{Delta: 1})
	c.Run(context.Background(), Navigate{Delta: -1})

	if got := c.Snapshot().Month; got != orig {
		t.Fatalf("month = %v, want %v", got, orig)
	}
	if n := st.lists.Load(); n != 2 {
		t.Fatalf("list calls = %d, want 2", n)
	}
}

func TestControllerFetchFailureSurfacesError(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemoryWith(
		model.Event{ID: 1, Title: "a", StartTime: "2024-04-10T09:00:00Z", EndTime: "2024-04-10T10:00:00Z"},
	)}
	c := newTestController(st)
	c.Run(context.Background(), Refresh{})

	st.failList.Store(true)
	c.Run(context.Background(), Refresh{})

	s := c.Snapshot()
	var rfe *RangeFetchError
	if !errors.As(s.Err, &rfe) {
		t.Fatalf("Err = %v", s.Err)
	}
	if len(s.Events) != 1 {
		t.Fatalf("stale cache dropped: %v", s.Events)
	}
}

func TestControllerDiscardsOutOfOrderResponse(t *testing.T) {
	t.Parallel()
	g := newGatedStore()
	c := newTestController(g)
	ctx := context.Background()

	effs := c.Dispatch(Navigate{Delta: 1}) // May
	mayDone := make(chan Msg, 1)
	go func() { mayDone <- c.Execute(ctx, effs[0]) }()
	mayCall := <-g.started

	effs = c.Dispatch(Navigate{Delta: 1}) // June
	juneDone := make(chan Msg, 1)
	go func() { juneDone <- c.Execute(ctx, effs[0]) }()
	juneCall := <-g.started

	select {
	case <-mayCall.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request was not cancelled")
	}

	juneCall.release <- []model.Event{{ID: 20, Title: "june", StartTime: "2024-06-12T10:00:00Z", EndTime: "2024-06-12T11:00:00Z"}}
	c.Dispatch(<-juneDone)

	mayCall.release <- []model.Event{{ID: 10, Title: "may", StartTime: "2024-05-12T10:00:00Z", EndTime: "2024-05-12T11:00:00Z"}}
	c.Dispatch(<-mayDone)

	s := c.Snapshot()
	if s.Month != (calendar.Month{Year: 2024, Month: time.June}) {
		t.Fatalf("month = %v", s.Month)
	}
	if got := ids(s.Events); !equalIDs(got, []int64{20}) {
		t.Fatalf("cache = %v, want June only", got)
	}
}

func TestControllerSkipsRequestSupersededBeforeStart(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemory()}
	c := newTestController(st)

	stale := c.Dispatch(Navigate{Delta: 1})
	fresh := c.Dispatch(Navigate{Delta: 1})

	msg := c.Execute(context.Background(), stale[0])
	if ff, ok := msg.(FetchFailed); !ok || !errors.Is(ff.Err, errSuperseded) {
		t.Fatalf("stale execute = %#v", msg)
	}
	c.Dispatch(msg)
	c.Dispatch(c.Execute(context.Background(), fresh[0]))

	if n := st.lists.Load(); n != 1 {
		t.Fatalf("list calls = %d, want 1", n)
	}
	if s := c.Snapshot(); s.Err != nil || s.Phase != Idle {
		t.Fatalf("state = %+v", s)
	}
}

func TestControllerCreateFlow(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemory()}
	c := newTestController(st)
	ctx := context.Background()
	c.Run(ctx, Refresh{})

	c.Run(ctx, DayClicked{Date: april10})
	if f := c.Form(); !f.IsOpen() || f.Draft.Date != april10 {
		t.Fatalf("form = %+v", f)
	}
	c.Run(ctx, SetTitle{Value: "Standup"})
	c.Run(ctx, SetStart{Value: "09:00"})
	c.Run(ctx, SetEnd{Value: "09:15"})
	c.Run(ctx, Submit{})

	if f := c.Form(); f.IsOpen() {
		t.Fatalf("form still open: %+v", f)
	}
	if n := st.lists.Load(); n != 2 {
		t.Fatalf("list calls = %d, want refresh after create", n)
	}
	s := c.Snapshot()
	if len(s.Events) != 1 || s.Events[0].StartTime != "2024-04-10T09:00:00Z" || s.Events[0].EndTime != "2024-04-10T09:15:00Z" {
		t.Fatalf("events = %+v", s.Events)
	}
}

func TestControllerCreateFailureKeepsFormOpen(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemory()}
	st.failCreate.Store(true)
	c := newTestController(st)
	ctx := context.Background()

	c.Run(ctx, DayClicked{Date: april10})
	c.Run(ctx, SetTitle{Value: "Review"})
	c.Run(ctx, Submit{})

	f := c.Form()
	var ce *CreateError
	if f.Phase != FormEditing || f.Draft.Title != "Review" || !errors.As(f.Err, &ce) {
		t.Fatalf("form = %+v", f)
	}
	if n := st.lists.Load(); n != 0 {
		t.Fatalf("failed create triggered %d fetches", n)
	}
}

func TestControllerDelete(t *testing.T) {
	t.Parallel()
	st := &countingStore{Memory: store.NewMemoryWith(
		model.Event{ID: 3, Title: "a", StartTime: "2024-04-10T09:00:00Z", EndTime: "2024-04-10T10:00:00Z"},
	)}
	c := newTestController(st)
	ctx := context.Background()
	c.Run(ctx, Refresh{})

	c.Run(ctx, c.Delete(ctx, 3))
	if s := c.Snapshot(); len(s.Events) != 0 {
		t.Fatalf("events after delete: %v", s.Events)
	}

	c.Run(ctx, c.Delete(ctx, 3))
	var de *DeleteError
	if s := c.Snapshot(); !errors.As(s.Err, &de) || !errors.Is(s.Err, store.ErrNotFound) {
		t.Fatalf("Err = %v", s.Err)
	}
}

func TestControllerIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()
	c := newTestController(store.NewMemory())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := 1
			if i%2 == 0 {
				delta = -1
			}
			c.Run(ctx, Navigate{Delta: delta})
			_ = c.Cells()
		}(i)
	}
	wg.Wait()

	if s := c.Snapshot(); s.Month != april10.MonthOf() || s.Phase != Idle {
		t.Fatalf("state = %+v", s)
	}
}

func TestControllerTodayFollowsClockWithoutDispatch(t *testing.T) {
	t.Parallel()
	var now atomic.Int64
	now.Store(time.Date(2024, time.April, 10, 23, 59, 0, 0, time.UTC).Unix())
	c := NewController(store.NewMemory(),
		WithClock(func() time.Time { return time.Unix(now.Load(), 0).UTC() }),
		WithLocation(time.UTC),
	)
	c.Run(context.Background(), Refresh{})

	now.Add(int64(2 * time.Minute / time.Second))

	april11 := calendar.NewDate(2024, time.April, 11)
	if got := c.Snapshot().Today; got != april11 {
		t.Errorf("Snapshot().Today = %s, want %s", got, april11)
	}
	for _, cell := range c.Cells() {
		if cell.IsToday != (cell.Date == april11) {
			t.Errorf("cell %s IsToday = %v", cell.Date, cell.IsToday)
		}
	}
}
