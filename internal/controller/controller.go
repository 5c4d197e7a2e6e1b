package controller

import (
	"strings"
	"sync"
	"time"

	"github.com/go-ap/errors"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

const (
	minYear = 1
	maxYear = 9999
)

// State is the current view month plus the selected and current day.
type State struct {
	ViewYear  int
	ViewMonth time.Month
	Selected  time.Time
	Today     time.Time
}

// View is what a renderer paints after a transition: the month grid, the
// events of the selected day and the event being edited, if any. Seq grows
// with every transition, so a later view always carries a larger Seq.
type View struct {
	Seq            uint64         `json:"seq"`
	Month          calendar.Month `json:"month"`
	Today          model.DateKey  `json:"today"`
	Selected       model.DateKey  `json:"selected"`
	SelectedEvents []model.Event  `json:"selected_events"`
	Editing        *model.Event   `json:"editing,omitempty"`
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLocation sets the zone "today" and selected dates are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithWeekStart sets the first column of the grid.
func WithWeekStart(d time.Weekday) Option {
	return func(c *Controller) { c.weekStart = d }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the calendar state and the event store it reads from.
// Every exported transition runs under one mutex and is followed by a render
// notification to the registered listeners.
type Controller struct {
	mu        sync.Mutex
	store     *store.Store
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
	state     State
	// editing is the ID of the event whose edit is staged, or "".
	editing string
	seq     uint64

	listenersMu sync.RWMutex
	listeners   []func(View)
}

// New creates a controller viewing the current month with today selected.
func New(st *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		loc:       time.Local,
		weekStart: time.Sunday,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = store.New()
	}

	today := c.today()
	c.state = State{
		ViewYear:  today.Year(),
		ViewMonth: today.Month(),
		Selected:  today,
		Today:     today,
	}
	return c
}

// OnRender registers fn to receive the view after every transition. fn is
// called outside the controller lock and may call back into it.
func (c *Controller) OnRender(fn func(View)) {
	if fn == nil {
		return
	}
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

// Store exposes the backing store for read-only helpers such as export.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Location is the zone dates are normalized into.
func (c *Controller) Location() *time.Location {
	return c.loc
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View builds the current view without changing state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// PrevMonth moves the view one month back, rolling the year over.
func (c *Controller) PrevMonth() {
	c.transition(func() error {
		c.showMonth(c.viewMonth().Prev())
		return nil
	})
}

// NextMonth moves the view one month forward, rolling the year over.
func (c *Controller) NextMonth() {
	c.transition(func() error {
		c.showMonth(c.viewMonth().Next())
		return nil
	})
}

// SetMonth shows month m of the current view year.
func (c *Controller) SetMonth(m time.Month) error {
	return c.transition(func() error {
		if m < time.January || m > time.December {
			return errors.BadRequestf("month %d out of range 1-12", int(m))
		}
		c.state.ViewMonth = m
		return nil
	})
}

// SetYear shows the current view month of year y.
func (c *Controller) SetYear(y int) error {
	return c.transition(func() error {
		if y < minYear || y > maxYear {
			return errors.BadRequestf("year %d out of range %d-%d", y, minYear, maxYear)
		}
		c.state.ViewYear = y
		return nil
	})
}

// GoToToday shows the current month and selects today.
func (c *Controller) GoToToday() {
	c.transition(func() error {
		today := c.today()
		c.state.Today = today
		c.state.Selected = today
		c.state.ViewYear, c.state.ViewMonth = today.Year(), today.Month()
		return nil
	})
}

// SelectDate selects the day of t. The view month is left alone even when t
// lies in another month.
func (c *Controller) SelectDate(t time.Time) {
	c.transition(func() error {
		c.state.Selected = model.Midnight(t, c.loc)
		return nil
	})
}

// SelectKey selects the day named by key.
func (c *Controller) SelectKey(key model.DateKey) error {
	return c.transition(func() error {
		t, err := model.ParseKey(string(key), c.loc)
		if err != nil {
			return errors.NewBadRequest(err, "invalid date %q", key)
		}
		c.state.Selected = t
		return nil
	})
}

// SubmitEvent stores an event on the selected day. When an edit is staged
// the staged event is replaced in place instead. The time range is not
// checked for start < end.
func (c *Controller) SubmitEvent(title string, start, end model.TimeOfDay) (model.Event, error) {
	var out model.Event
	err := c.transition(func() error {
		title = strings.TrimSpace(title)
		if title == "" {
			return errors.BadRequestf("event title is empty")
		}
		ev := model.Event{
			Title: title,
			Start: start,
			End:   end,
			Date:  model.KeyFor(c.state.Selected),
		}

		if c.editing != "" {
			id := c.editing
			c.editing = ""
			replaced, err := c.store.Replace(id, ev)
			if err == nil {
				out = replaced
				appLog.Debug("event replaced", "id", id, "date", ev.Date)
				return nil
			}
			// The staged event vanished meanwhile; fall through to add.
			appLog.Warn("staged event missing on submit, adding instead", "id", id)
		}

		out = c.store.Add(ev)
		appLog.Debug("event added", "id", out.ID, "date", out.Date)
		return nil
	})
	return out, err
}

// AddEvent stores ev on its own date without touching the selection or a
// staged edit.
func (c *Controller) AddEvent(ev model.Event) (model.Event, error) {
	var out model.Event
	err := c.transition(func() error {
		ev.Title = strings.TrimSpace(ev.Title)
		if ev.Title == "" {
			return errors.BadRequestf("event title is empty")
		}
		if !ev.Date.Valid() {
			return errors.BadRequestf("invalid event date %q", ev.Date)
		}
		out = c.store.Add(ev)
		appLog.Debug("event added", "id", out.ID, "date", out.Date)
		return nil
	})
	return out, err
}

// EditEvent stages the event with the given ID for editing and selects its
// day. The event stays in the store until SubmitEvent replaces it or
// CancelEdit drops the staging.
func (c *Controller) EditEvent(id string) (model.Event, error) {
	var out model.Event
	err := c.transition(func() error {
		ev, ok := c.store.Get(id)
		if !ok {
			return errors.NotFoundf("event %s not found", id)
		}
		sel, err := model.ParseKey(string(ev.Date), c.loc)
		if err != nil {
			return errors.Annotatef(err, "event %s has a bad date", id)
		}
		c.editing = id
		c.state.Selected = sel
		out = ev
		return nil
	})
	return out, err
}

// CancelEdit abandons a staged edit. The original event is untouched.
func (c *Controller) CancelEdit() {
	c.transition(func() error {
		c.editing = ""
		return nil
	})
}

// Editing returns the staged event, if any.
func (c *Controller) Editing() (model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == "" {
		return model.Event{}, false
	}
	return c.store.Get(c.editing)
}

// DeleteEvent removes the event with the given ID. Unknown IDs are a no-op
// and return false.
func (c *Controller) DeleteEvent(id string) bool {
	var removed bool
	c.transition(func() error {
		removed = c.store.Remove(id)
		if removed && c.editing == id {
			c.editing = ""
		}
		return nil
	})
	return removed
}

// Load replaces every event. Any staged edit is dropped.
func (c *Controller) Load(events []model.Event) {
	c.transition(func() error {
		c.editing = ""
		c.store.Load(events)
		return nil
	})
}

// Reset empties the store.
func (c *Controller) Reset() {
	c.transition(func() error {
		c.editing = ""
		c.store.Reset()
		return nil
	})
}

// RefreshToday re-reads the clock so the today marker follows midnight.
func (c *Controller) RefreshToday() {
	c.transition(func() error {
		c.state.Today = c.today()
		return nil
	})
}

// transition applies fn under the lock and, when it succeeds, notifies the
// listeners with the new view. A failing fn must leave state untouched.
// Listeners run outside the lock, so two concurrent transitions may deliver
// their views out of order; Seq lets a listener keep the newest.
func (c *Controller) transition(fn func() error) error {
	c.mu.Lock()
	if err := fn(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.seq++
	v := c.viewLocked()
	c.mu.Unlock()

	c.listenersMu.RLock()
	listeners := make([]func(View), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(v)
	}
	return nil
}

func (c *Controller) viewLocked() View {
	selected := model.KeyFor(c.state.Selected)
	v := View{
		Seq:            c.seq,
		Month:          calendar.Build(c.state.ViewYear, c.state.ViewMonth, c.state.Today, c.state.Selected, c.store, c.weekStart),
		Today:          model.KeyFor(c.state.Today),
		Selected:       selected,
		SelectedEvents: c.store.ByDate(selected),
	}
	if c.editing != "" {
		if ev, ok := c.store.Get(c.editing); ok {
			v.Editing = &ev
		}
	}
	return v
}

func (c *Controller) viewMonth() calendar.Month {
	return calendar.Month{Year: c.state.ViewYear, Month: c.state.ViewMonth}
}

// showMonth moves the view to year/month unless year is out of range.
func (c *Controller) showMonth(year int, month time.Month) {
	if year < minYear || year > maxYear {
		return
	}
	c.state.ViewYear, c.state.ViewMonth = year, month
}

func (c *Controller) today() time.Time {
	return model.Midnight(c.now(), c.loc)
}
