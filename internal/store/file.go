package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// fileData is the on-disk shape of the file store.
type fileData struct {
	NextID int64         `json:"next_id"`
	Events []model.Event `json:"events"`
}

// File is an EventStore persisted as a single JSON document. Every
// mutation rewrites the file atomically (temp file + rename).
type File struct {
	path string

	// writeMu serializes mutate+persist so the file always reflects the
	// latest in-memory state.
	writeMu sync.Mutex
	mem     *Memory
}

// OpenFile loads path, or starts empty when it does not exist yet.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("store: data file path is empty")
	}
	f := &File{path: path, mem: NewMemory()}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Info("event file not found, starting empty", "path", path)
			return f, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	f.mem = NewMemoryWith(fd.Events...)
	if fd.NextID > f.mem.nextID {
		f.mem.nextID = fd.NextID
	}
	appLog.Info("event file loaded", "path", path, "events", len(fd.Events))
	return f, nil
}

func (f *File) ListEvents(ctx context.Context, startRange, endRange string) ([]model.Event, error) {
	return f.mem.ListEvents(ctx, startRange, endRange)
}

func (f *File) CreateEvent(ctx context.Context, title string, description *string, start, end string) (int64, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	id, err := f.mem.CreateEvent(ctx, title, description, start, end)
	if err != nil {
		return 0, err
	}
	if err := f.persist(); err != nil {
		// Roll back so memory and disk stay consistent.
		_ = f.mem.DeleteEvent(context.Background(), id)
		return 0, err
	}
	return id, nil
}

func (f *File) DeleteEvent(ctx context.Context, id int64) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mem.mu.RLock()
	prev, ok := f.mem.events[id]
	f.mem.mu.RUnlock()

	if err := f.mem.DeleteEvent(ctx, id); err != nil {
		return err
	}
	if err := f.persist(); err != nil {
		if ok {
			f.mem.mu.Lock()
			f.mem.events[id] = prev
			f.mem.mu.Unlock()
		}
		return err
	}
	return nil
}

func (f *File) persist() error {
	f.mem.mu.RLock()
	next := f.mem.nextID
	f.mem.mu.RUnlock()

	data, err := json.MarshalIndent(fileData{NextID: next, Events: f.mem.snapshot()}, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode events: %w", err)
	}
	if err := config.WriteFileAtomic(f.path, data, 0o600); err != nil {
		appLog.Error("event file save failed", err, "path", f.path)
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	return nil
}
