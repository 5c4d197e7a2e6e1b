package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"monthcal/internal/config"
	"monthcal/internal/controller"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *controller.Controller) {
	t.Helper()
	st := store.New()
	st.Load([]model.Event{
		{ID: "standup", Title: "Standup", Date: "2024-05-15", Start: 9 * 60, End: 9*60 + 15},
		{ID: "review", Title: "Review", Date: "2024-05-20", Start: 14 * 60, End: 15 * 60},
	})
	ctrl := controller.New(st, controller.WithLocation(time.UTC), controller.WithClock(func() time.Time { return testNow }))
	s, err := NewServer(cfg, ctrl)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s, ctrl
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if method == http.MethodPost && !strings.HasPrefix(target, "/api/") {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func form(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestIndexRendersMonth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-ready="true"`,
		"<title>May 2024</title>",
		`class="day today active" data-date="2024-05-15"`,
		`class="event-dot"`,
		"Standup",
		`action="/events/standup/edit"`,
		`<option value="5" selected>May</option>`,
		`<option value="2024" selected>2024</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	if strings.Contains(body, "Review") {
		t.Error("Expected only the selected day's events to be listed")
	}
}

func TestNavigationFormsRedirect(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/nav/next", "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("Expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if st := ctrl.State(); st.ViewMonth != time.June {
		t.Errorf("Expected June, got %s", st.ViewMonth)
	}

	do(t, h, http.MethodPost, "/nav/year", form("year", "2030"))
	do(t, h, http.MethodPost, "/nav/month", form("month", "2"))
	if st := ctrl.State(); st.ViewYear != 2030 || st.ViewMonth != time.February {
		t.Errorf("Expected February 2030, got %d-%s", st.ViewYear, st.ViewMonth)
	}
	if got := s.currentView().Month.Title(); got != "February 2030" {
		t.Errorf("Expected cached view to follow, got %s", got)
	}

	rec = do(t, h, http.MethodPost, "/nav/month", form("month", "13"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for month 13, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/nav/year", form("year", "abc"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad year, got %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/nav/today", "")
	if st := ctrl.State(); st.ViewYear != 2024 || st.ViewMonth != time.May {
		t.Errorf("Expected back on May 2024, got %d-%s", st.ViewYear, st.ViewMonth)
	}
}

func TestSubmitEditCancelDeleteForms(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	h := s.Handler()

	do(t, h, http.MethodPost, "/select", form("date", "2024-05-20"))
	rec := do(t, h, http.MethodPost, "/events", form("title", "Lunch", "start", "12:00", "end", "13:00"))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	events := ctrl.Store().ByDate("2024-05-20")
	if len(events) != 2 || events[1].Title != "Lunch" {
		t.Fatalf("Expected Lunch appended on 2024-05-20, got %v", events)
	}

	rec = do(t, h, http.MethodPost, "/events", form("title", "x", "start", "25:00"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad time, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/events", form("title", " "))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty title, got %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/events/review/edit", "")
	page := do(t, h, http.MethodGet, "/", "").Body.String()
	if !strings.Contains(page, `value="Review"`) || !strings.Contains(page, `action="/events/cancel"`) {
		t.Error("Expected form prefilled with the staged event and a cancel button")
	}
	do(t, h, http.MethodPost, "/events/cancel", "")
	if _, editing := ctrl.Editing(); editing {
		t.Error("Expected cancel to drop the staged edit")
	}

	rec = do(t, h, http.MethodPost, "/events/nope/edit", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 editing unknown event, got %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/events/review/delete", "")
	if _, ok := ctrl.Store().Get("review"); ok {
		t.Error("Expected review to be deleted")
	}
	rec = do(t, h, http.MethodPost, "/events/review/delete", "")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Expected deleting a missing event to be a no-op redirect, got %d", rec.Code)
	}
}

func TestAPIViewAndMonth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/view", "")
	var v controller.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	if v.Selected != "2024-05-15" || len(v.SelectedEvents) != 1 {
		t.Errorf("Unexpected view %+v", v)
	}

	rec = do(t, h, http.MethodGet, "/api/month?year=2024&month=2", "")
	var m monthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("Failed to decode month: %v", err)
	}
	if m.Title != "February 2024" || m.Month.Days != 29 || m.Month.Offset != 4 {
		t.Errorf("Unexpected month %s days=%d offset=%d", m.Title, m.Month.Days, m.Month.Offset)
	}
	if got := s.currentView().Month.Month; got != time.May {
		t.Errorf("Expected /api/month to leave the view alone, got %s", got)
	}

	for _, q := range []string{"month=0", "month=13", "year=0", "year=x"} {
		if rec := do(t, h, http.MethodGet, "/api/month?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", q, rec.Code)
		}
	}
}

func TestAPIEventsCRUD(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/events?date=2024-05-20", "")
	var list eventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Events) != 1 || list.Events[0].ID != "review" {
		t.Errorf("Unexpected events %v", list.Events)
	}
	if rec := do(t, h, http.MethodGet, "/api/events?date=2024-02-30", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for impossible date, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/events", `{"date":"2024-05-21","title":"Demo","start":"10:00","end":"11:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Start.String() != "10:00" {
		t.Errorf("Unexpected created event %+v", created)
	}
	if cell, _ := s.currentView().Month.Cell("2024-05-21"); !cell.HasEvents {
		t.Error("Expected cached view to show the new event dot")
	}

	if rec := do(t, h, http.MethodPost, "/api/events", `{"title":`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad JSON, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/events", `{"title":"x","start":"9:7"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad time, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil || errBody["error"] == "" {
		t.Errorf("Expected JSON error body, got %q", rec.Body.String())
	}
	if ctrl.Store().Len() != 2 {
		t.Errorf("Expected 2 events left, got %d", ctrl.Store().Len())
	}
}

func TestAPIExport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/events.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Expected text/calendar, got %s", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "SUMMARY:Standup") || !strings.Contains(body, "SUMMARY:Review") {
		t.Errorf("Expected both events exported, got %s", body)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	s, _ := newTestServer(t, cfg)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected /health without auth, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", rec.Code)
	}
}

func TestStaticAndUnknownRoutes(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()
	if rec := do(t, h, http.MethodGet, "/static/style.css", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected stylesheet, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/nav/next", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET on a form action, got %d", rec.Code)
	}
}

func TestCachedViewIgnoresLateStaleRender(t *testing.T) {
	ctrl := controller.New(store.New(), controller.WithLocation(time.UTC), controller.WithClock(func() time.Time { return testNow }))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ctrl.OnRender(func(controller.View) {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
	})
	s, err := NewServer(nil, ctrl)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		ctrl.NextMonth()
		close(done)
	}()
	<-entered
	ctrl.NextMonth()
	close(release)
	<-done

	if got := s.currentView().Month.Month; got != time.July {
		t.Errorf("Expected cached view on July, got %s", got)
	}
	if s.currentView().Seq != ctrl.View().Seq {
		t.Errorf("Expected cached seq %d, got %d", ctrl.View().Seq, s.currentView().Seq)
	}
}

func TestCachedViewAfterConcurrentRequests(t *testing.T) {
	s, ctrl := newTestServer(t, nil)
	h := s.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if (i+j)%2 == 0 {
					do(t, h, http.MethodPost, "/nav/next", "")
				} else {
					do(t, h, http.MethodPost, "/nav/prev", "")
				}
				do(t, h, http.MethodGet, "/api/view", "")
			}
		}(i)
	}
	wg.Wait()

	want := ctrl.View()
	rec := do(t, h, http.MethodGet, "/api/view", "")
	var got controller.View
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	if got.Seq != want.Seq || got.Month.Year != want.Month.Year || got.Month.Month != want.Month.Month {
		t.Errorf("Expected served view %d-%s seq %d, got %d-%s seq %d",
			want.Month.Year, want.Month.Month, want.Seq, got.Month.Year, got.Month.Month, got.Seq)
	}
}
