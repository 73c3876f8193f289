package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"monthcal/internal/calendar"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
	"monthcal/internal/timefield"
)

const maxCreateBody = 64 << 10

type createResponse struct {
	ID int64 `json:"id"`
}

// rangeParams resolves the list range of a request:
//
//	?month=YYYY-MM          display range of that month
//	?start=...&end=...      explicit RFC 3339 bounds, both required
//	(none)                  display range of the current month
func (s *Server) rangeParams(r *http.Request) (start, end string, err error) {
	q := r.URL.Query()

	if raw := q.Get("month"); raw != "" {
		m, err := calendar.ParseMonth(raw)
		if err != nil {
			return "", "", err
		}
		start, end = timefield.RangeBounds(calendar.Range(m, s.weekStart))
		return start, end, nil
	}

	rawStart, rawEnd := q.Get("start"), q.Get("end")
	if rawStart == "" && rawEnd == "" {
		m := calendar.Today(s.now(), s.loc).MonthOf()
		start, end = timefield.RangeBounds(calendar.Range(m, s.weekStart))
		return start, end, nil
	}
	if rawStart == "" || rawEnd == "" {
		return "", "", errors.New("start and end are both required")
	}

	st, err := timefield.ParseTimestamp(rawStart)
	if err != nil {
		return "", "", fmt.Errorf("start: %w", err)
	}
	et, err := timefield.ParseTimestamp(rawEnd)
	if err != nil {
		return "", "", fmt.Errorf("end: %w", err)
	}
	if et.Before(st) {
		return "", "", errors.New("end is before start")
	}
	return timefield.FormatTime(st), timefield.FormatTime(et), nil
}

// handleListEvents returns events whose start lies in the requested range.
//
// GET /api/events?start=2024-02-25T00:00:00Z&end=2024-04-06T23:59:59Z
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.store.ListEvents(r.Context(), start, end)
	if err != nil {
		appLog.Error("api list events failed", err, "start", start, "end", end)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	appLog.Debug("api list events", "start", start, "end", end, "count", len(events))
	writeJSON(w, http.StatusOK, events)
}

// handleCreateEvent stores a new event.
//
// POST /api/events {"title": "...", "description": "...", "start": "...", "end": "..."}
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.NewEvent
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCreateBody))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	st, err := timefield.ParseTimestamp(in.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
		return
	}
	et, err := timefield.ParseTimestamp(in.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
		return
	}
	if et.Before(st) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}

	id, err := s.store.CreateEvent(r.Context(), title, in.Description, timefield.FormatTime(st), timefield.FormatTime(et))
	if err != nil {
		if errors.Is(err, store.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("api create event failed", err, "title", title)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	s.metrics.created.Inc()
	appLog.Info("event created", "id", id, "start", timefield.FormatTime(st))
	writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

// handleDeleteEvent removes an event.
//
// DELETE /api/events/{id}
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.store.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		appLog.Error("api delete event failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	s.metrics.deleted.Inc()
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleExportICS returns the requested range as an iCalendar document.
//
// GET /api/events.ics?month=2024-03
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.store.ListEvents(r.Context(), start, end)
	if err != nil {
		appLog.Error("api ics export failed", err, "start", start, "end", end)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	body := ics.Export(events, ics.ExportOptions{Name: "monthcal", Now: s.now()})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monthcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
