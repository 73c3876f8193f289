package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var march15 = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.RateLimit.RPS = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, st store.EventStore) http.Handler {
	t.Helper()
	return NewServer(cfg, st, WithClock(func() time.Time { return march15 })).Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seeded() *store.Memory {
	return store.NewMemoryWith(
		model.Event{ID: 1, Title: "Leap day", StartTime: "2024-02-29T08:00:00Z", EndTime: "2024-02-29T09:00:00Z"},
		model.Event{ID: 2, Title: "Ides", StartTime: "2024-03-15T12:30:00Z", EndTime: "2024-03-15T13:00:00Z"},
		model.Event{ID: 3, Title: "Far away", StartTime: "2024-07-01T08:00:00Z", EndTime: "2024-07-01T09:00:00Z"},
	)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := do(newTestServer(t, testConfig(), store.NewMemory()), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuthExemptsHealth(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	h := newTestServer(t, cfg, store.NewMemory())

	if rec := do(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("unauthenticated list = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("me", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated list = %d", rec.Code)
	}
}

func TestListEventsRanges(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), seeded())

	tests := []struct {
		name   string
		target string
		code   int
		ids    []int64
	}{
		{"default is current month", "/api/events", http.StatusOK, []int64{1, 2}},
		{"month param", "/api/events?month=2024-07", http.StatusOK, []int64{3}},
		{"explicit bounds", "/api/events?start=2024-03-01T00:00:00Z&end=2024-03-31T23:59:59Z", http.StatusOK, []int64{2}},
		{"offset bounds normalized", "/api/events?start=2024-02-29T17:00:00%2B09:00&end=2024-02-29T18:00:00%2B09:00", http.StatusOK, []int64{1}},
		{"empty result", "/api/events?month=2025-01", http.StatusOK, []int64{}},
		{"bad month", "/api/events?month=2024-13", http.StatusBadRequest, nil},
		{"half range", "/api/events?start=2024-03-01T00:00:00Z", http.StatusBadRequest, nil},
		{"reversed range", "/api/events?start=2024-03-31T00:00:00Z&end=2024-03-01T00:00:00Z", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(h, http.MethodGet, tt.target, "")
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.ids == nil {
				return
			}
			var got []model.Event
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got == nil {
				t.Fatal("empty list must encode as [] not null")
			}
			if len(got) != len(tt.ids) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.ids))
			}
			for i := range got {
				if got[i].ID != tt.ids[i] {
					t.Errorf("event %d id = %d, want %d", i, got[i].ID, tt.ids[i])
				}
			}
		})
	}
}

func TestCreateAndDelete(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	h := newTestServer(t, testConfig(), st)

	rec := do(h, http.MethodPost, "/api/events", `{"title":" Standup ","start":"2024-04-10T09:00:00Z","end":"2024-04-10T09:15:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	var created createResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil || created.ID == 0 {
		t.Fatalf("create response = %+v, %v", created, err)
	}

	events, _ := st.ListEvents(context.Background(), "2024-04-10T00:00:00Z", "2024-04-10T23:59:59Z")
	if len(events) != 1 || events[0].Title != "Standup" || events[0].EndTime != "2024-04-10T09:15:00Z" {
		t.Fatalf("stored = %+v", events)
	}

	target := "/api/events/" + jsonNumber(created.ID)
	if rec := do(h, http.MethodDelete, target, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := do(h, http.MethodDelete, target, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", rec.Code)
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), store.NewMemory())

	bodies := map[string]string{
		"blank title":  `{"title":"  ","start":"2024-04-10T09:00:00Z","end":"2024-04-10T10:00:00Z"}`,
		"bad start":    `{"title":"x","start":"10 April","end":"2024-04-10T10:00:00Z"}`,
		"missing end":  `{"title":"x","start":"2024-04-10T09:00:00Z"}`,
		"end first":    `{"title":"x","start":"2024-04-10T09:00:00Z","end":"2024-04-10T08:00:00Z"}`,
		"invalid json": `{"title":`,
	}
	for name, body := range bodies {
		if rec := do(h, http.MethodPost, "/api/events", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestExportICS(t *testing.T) {
	t.Parallel()
	rec := do(newTestServer(t, testConfig(), seeded()), http.MethodGet, "/api/events.ics?month=2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SUMMARY:Ides") || !strings.Contains(body, "SUMMARY:Leap day") || strings.Contains(body, "Far away") {
		t.Errorf("unexpected export:\n%s", body)
	}
}

func TestCalendarPage(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), seeded())

	rec := do(h, http.MethodGet, "/calendar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-ready="true"`,
		"<h1>March 2024</h1>",
		`data-date="2024-02-25"`,
		`data-date="2024-04-06"`,
		"<time>12:30</time>Ides",
		"<time>08:00</time>Leap day",
		"<th>Sun</th>",
		`href="/calendar?month=2024-04"`,
		"today",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Far away") {
		t.Error("event outside the range rendered")
	}

	rec = do(h, http.MethodGet, "/calendar?month=2024-07", "")
	if !strings.Contains(rec.Body.String(), "<h1>July 2024</h1>") || !strings.Contains(rec.Body.String(), "Far away") {
		t.Error("July page missing its event")
	}
	if rec := do(h, http.MethodGet, "/calendar?month=July", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d", rec.Code)
	}
}

type failingStore struct{ *store.Memory }

func (failingStore) ListEvents(context.Context, string, string) ([]model.Event, error) {
	return nil, errors.New("db down")
}

func (failingStore) Ping(context.Context) error { return errors.New("db down") }

func TestStoreFailures(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), failingStore{store.NewMemory()})

	if rec := do(h, http.MethodGet, "/api/events", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("list status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/calendar", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Events could not be loaded.") {
		t.Errorf("page should render with a notice, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), store.NewMemory())

	rec := do(h, http.MethodGet, "/health", "")
	if rec.Header().Get(store.RequestIDHeader) == "" {
		t.Error("request id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(store.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(store.RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want echo", got)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	h := newTestServer(t, cfg, store.NewMemory())

	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodGet, "/api/events", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	if rec := do(h, http.MethodGet, "/api/events", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must not be limited, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client limited: %d", rec.Code)
	}
}

func TestLimiterSweep(t *testing.T) {
	t.Parallel()
	l := newIPLimiter(1, 1)
	now := time.Now()
	l.allow("a", now.Add(-10*time.Minute))
	l.allow("b", now)
	if removed := l.sweep(now); removed != 1 {
		t.Fatalf("removed = %d", removed)
	}
	if _, ok := l.visitors["b"]; !ok {
		t.Fatal("active visitor dropped")
	}
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, testConfig(), store.NewMemory())
	do(h, http.MethodDelete, "/api/events/12345", "")

	rec := do(h, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	if !strings.Contains(body, `monthcal_http_requests_total{method="DELETE",route="/api/events/{id:[0-9]+}",status="Not Found"} 1`) {
		t.Errorf("metrics missing templated route:\n%s", body)
	}
	if strings.Contains(body, "12345") {
		t.Error("raw id leaked into labels")
	}
}

func TestClientAgainstServer(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	srv := httptest.NewServer(newTestServer(t, cfg, store.NewMemory()))
	t.Cleanup(srv.Close)

	c := store.NewClient(srv.URL, store.WithBasicAuth("me", "secret"))
	ctx := context.Background()

	desc := "bring card"
	id, err := c.CreateEvent(ctx, "Dentist", &desc, "2024-04-11T08:30:00Z", "2024-04-11T09:00:00Z")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	events, err := c.ListEvents(ctx, "2024-04-01T00:00:00Z", "2024-04-30T23:59:59Z")
	if err != nil || len(events) != 1 || events[0].ID != id || events[0].DescriptionOrEmpty() != desc {
		t.Fatalf("ListEvents = %+v, %v", events, err)
	}
	if _, err := c.CreateEvent(ctx, "x", nil, "noon", "later"); !errors.Is(err, store.ErrInvalidEvent) {
		t.Fatalf("invalid create err = %v", err)
	}
	if err := c.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if err := c.DeleteEvent(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second DeleteEvent err = %v", err)
	}

	bad := store.NewClient(srv.URL)
	if _, err := bad.ListEvents(ctx, "2024-04-01T00:00:00Z", "2024-04-30T23:59:59Z"); err == nil {
		t.Fatal("expected error without credentials")
	}
}
