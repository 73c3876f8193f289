package ics

import (
	"context"
	"errors"
	"fmt"

	appLog "monthcal/internal/log"
	"monthcal/internal/store"
)

// ImportResult summarizes an Import.
type ImportResult struct {
	Created int
	Skipped int
	IDs     []int64
}

// Import creates one stored event per parsed event. Events the store
// rejects as invalid are counted as skipped; any other error stops the
// import.
func Import(ctx context.Context, st store.EventStore, events []ParsedEvent) (ImportResult, error) {
	var res ImportResult
	for _, ev := range events {
		ne := ev.NewEvent()
		id, err := st.CreateEvent(ctx, ne.Title, ne.Description, ne.Start, ne.End)
		if err != nil {
			if errors.Is(err, store.ErrInvalidEvent) {
				appLog.Warn("ics import: event rejected", "uid", ev.UID, "error", err.Error())
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("ics: import %s: %w", ev.UID, err)
		}
		res.Created++
		res.IDs = append(res.IDs, id)
	}
	appLog.Info("ics import completed", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

// ImportFrom loads pathOrURL with f, parses it and imports the events.
func ImportFrom(ctx context.Context, f *Fetcher, st store.EventStore, pathOrURL string) (ImportResult, error) {
	body, err := f.Load(ctx, pathOrURL)
	if err != nil {
		return ImportResult{}, err
	}
	events, err := ParseICS(pathOrURL, body)
	if err != nil {
		return ImportResult{}, err
	}
	return Import(ctx, st, events)
}
