package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-ap/errors"

	"monthcal/internal/calendar"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const maxRequestBody = 1 << 20

var templateFuncs = template.FuncMap{
	"cellClass": cellClass,
}

// cellClass returns the CSS classes of a grid cell.
func cellClass(c calendar.Cell) string {
	if c.Blank {
		return "day blank"
	}
	classes := []string{"day"}
	if c.IsToday {
		classes = append(classes, "today")
	}
	if c.IsSelected {
		classes = append(classes, "active")
	}
	return strings.Join(classes, " ")
}

type option struct {
	Value    int
	Label    string
	Selected bool
}

type eventForm struct {
	Title string
	Start string
	End   string
}

// pageData is the month.html template input.
type pageData struct {
	Title    string
	Headers  []string
	Weeks    [][]calendar.Cell
	Months   []option
	Years    []option
	Today    model.DateKey
	Selected model.DateKey
	Events   []model.Event
	Editing  *model.Event
	Form     eventForm
}

func (s *Server) page() pageData {
	v := s.currentView()
	m := v.Month

	months := make([]option, 0, 12)
	for i, name := range calendar.MonthNames() {
		months = append(months, option{Value: i + 1, Label: name, Selected: time.Month(i+1) == m.Month})
	}
	var years []option
	for _, y := range calendar.YearRange(m.Year, s.cfg.YearSpan) {
		if y < 1 || y > 9999 {
			continue
		}
		years = append(years, option{Value: y, Label: strconv.Itoa(y), Selected: y == m.Year})
	}

	p := pageData{
		Title:    m.Title(),
		Headers:  calendar.WeekdayHeaders(m.WeekStart),
		Weeks:    m.Weeks(),
		Months:   months,
		Years:    years,
		Today:    v.Today,
		Selected: v.Selected,
		Events:   v.SelectedEvents,
		Editing:  v.Editing,
	}
	if v.Editing != nil {
		p.Form = eventForm{Title: v.Editing.Title, Start: v.Editing.Start.String(), End: v.Editing.End.String()}
	}
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "month.html", s.page()); err != nil {
		appLog.Error("render month page failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// back finishes a form post: redirect to the page on success, plain-text
// error otherwise.
func back(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			appLog.Error("form action failed", err, "path", r.URL.Path)
		}
		http.Error(w, err.Error(), status)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleNavPrev(w http.ResponseWriter, r *http.Request) {
	s.ctrl.PrevMonth()
	back(w, r, nil)
}

func (s *Server) handleNavNext(w http.ResponseWriter, r *http.Request) {
	s.ctrl.NextMonth()
	back(w, r, nil)
}

func (s *Server) handleNavToday(w http.ResponseWriter, r *http.Request) {
	s.ctrl.GoToToday()
	back(w, r, nil)
}

func (s *Server) handleNavMonth(w http.ResponseWriter, r *http.Request) {
	n, err := formInt(r, "month")
	if err == nil {
		err = s.ctrl.SetMonth(time.Month(n))
	}
	back(w, r, err)
}

func (s *Server) handleNavYear(w http.ResponseWriter, r *http.Request) {
	n, err := formInt(r, "year")
	if err == nil {
		err = s.ctrl.SetYear(n)
	}
	back(w, r, err)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	back(w, r, s.ctrl.SelectKey(model.DateKey(strings.TrimSpace(r.FormValue("date")))))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	start, err := formTime(r, "start")
	if err != nil {
		back(w, r, err)
		return
	}
	end, err := formTime(r, "end")
	if err != nil {
		back(w, r, err)
		return
	}
	_, err = s.ctrl.SubmitEvent(r.FormValue("title"), start, end)
	back(w, r, err)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	_, err := s.ctrl.EditEvent(r.PathValue("id"))
	back(w, r, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.ctrl.DeleteEvent(r.PathValue("id"))
	back(w, r, nil)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.ctrl.CancelEdit()
	back(w, r, nil)
}

func formInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequestf("invalid %s %q", name, raw)
	}
	return n, nil
}

func formTime(r *http.Request, name string) (model.TimeOfDay, error) {
	raw := r.FormValue(name)
	t, err := model.ParseTimeOfDay(raw)
	if err != nil {
		return 0, errors.NewBadRequest(err, "invalid %s %q", name, raw)
	}
	return t, nil
}

func (s *Server) handleAPIView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentView())
}

type monthResponse struct {
	Title   string         `json:"title"`
	Headers []string       `json:"headers"`
	Month   calendar.Month `json:"month"`
}

// handleAPIMonth builds any month without moving the view.
//
// GET /api/month?year=2024&month=2
//   - year/month default to the viewed month
func (s *Server) handleAPIMonth(w http.ResponseWriter, r *http.Request) {
	v := s.currentView()
	q := r.URL.Query()

	year, month := v.Month.Year, int(v.Month.Month)
	if raw := q.Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 9999 {
			fail(w, errors.BadRequestf("invalid year %q", raw))
			return
		}
		year = n
	}
	if raw := q.Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			fail(w, errors.BadRequestf("invalid month %q", raw))
			return
		}
		month = n
	}

	st := s.ctrl.State()
	m := calendar.Build(year, time.Month(month), st.Today, st.Selected, s.ctrl.Store(), v.Month.WeekStart)
	writeJSON(w, http.StatusOK, monthResponse{
		Title:   m.Title(),
		Headers: calendar.WeekdayHeaders(m.WeekStart),
		Month:   m,
	})
}

type eventsResponse struct {
	Date   model.DateKey `json:"date"`
	Events []model.Event `json:"events"`
}

// handleAPIEvents lists the events of one day, the selected day by default.
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	key := s.currentView().Selected
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		key = model.DateKey(raw)
	}
	if !key.Valid() {
		fail(w, errors.BadRequestf("invalid date %q", key))
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Date: key, Events: s.ctrl.Store().ByDate(key)})
}

// handleAPICreate adds one event. A missing date means the selected day.
func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&ev); err != nil {
		fail(w, errors.NewBadRequest(err, "invalid event JSON: %s", err))
		return
	}
	if ev.Date == "" {
		ev.Date = s.currentView().Selected
	}
	ev.ID = ""

	created, err := s.ctrl.AddEvent(ev)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.ctrl.DeleteEvent(id) {
		fail(w, errors.NotFoundf("event %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.ctrl.Store().All(), s.ctrl.Location(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = w.Write([]byte(body))
}
