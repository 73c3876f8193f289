package store

import (
	"context"
	"sync"

	"monthcal/internal/model"
)

// Memory is an in-process EventStore. Ids are assigned sequentially from 1.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]model.Event
}

func NewMemory() *Memory {
	return &Memory{
		nextID: 1,
		events: make(map[int64]model.Event),
	}
}

// NewMemoryWith seeds the store, keeping the given ids. Seeded events are
// stored verbatim, even with timestamps that would not parse.
func NewMemoryWith(events ...model.Event) *Memory {
	m := NewMemory()
	for _, ev := range events {
		m.events[ev.ID] = ev
		if ev.ID >= m.nextID {
			m.nextID = ev.ID + 1
		}
	}
	return m
}

func (m *Memory) ListEvents(ctx context.Context, startRange, endRange string) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Event, 0)
	for _, ev := range m.events {
		if inRange(ev, startRange, endRange) {
			ev.Description = cloneDescription(ev.Description)
			out = append(out, ev)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) CreateEvent(ctx context.Context, title string, description *string, start, end string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateNew(title, start, end); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.events[id] = model.Event{
		ID:          id,
		Title:       title,
		Description: cloneDescription(description),
		StartTime:   start,
		EndTime:     end,
	}
	return id, nil
}

func (m *Memory) DeleteEvent(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// snapshot returns all events ordered by start time.
func (m *Memory) snapshot() []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	sortByStart(out)
	return out
}
