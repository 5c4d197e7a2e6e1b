package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"monthcal/internal/controller"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

type focus int

const (
	focusGrid focus = iota
	focusList
	focusForm
)

const (
	fieldTitle = iota
	fieldStart
	fieldEnd
)

// Model is the terminal month view. Every key goes through the controller;
// the model only keeps the last view it got back plus its own UI state.
type Model struct {
	ctrl *controller.Controller
	view controller.View

	focus  focus
	cursor int

	inputs []textinput.Model
	field  int

	message  string
	quitting bool
	width    int

	styles Styles
}

// New creates a Model over ctrl.
func New(ctrl *controller.Controller) *Model {
	m := &Model{
		ctrl:   ctrl,
		styles: DefaultStyles(),
	}

	placeholders := []string{"Title", "Start HH:MM", "End HH:MM"}
	limits := []int{120, 5, 5}
	m.inputs = make([]textinput.Model, len(placeholders))
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		m.inputs[i] = in
	}

	m.refresh()
	return m
}

// Run starts the full-screen program and blocks until it quits.
func Run(ctrl *controller.Controller) error {
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.focus {
		case focusForm:
			return m.handleFormKeys(msg)
		case focusList:
			return m.handleListKeys(msg)
		default:
			return m.handleGridKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "l", "right":
		m.moveSelection(1)
	case "h", "left":
		m.moveSelection(-1)
	case "j", "down":
		m.moveSelection(7)
	case "k", "up":
		m.moveSelection(-7)

	case "n":
		m.ctrl.NextMonth()
	case "p":
		m.ctrl.PrevMonth()
	case "N":
		m.report(m.ctrl.SetYear(m.view.Month.Year + 1))
	case "P":
		m.report(m.ctrl.SetYear(m.view.Month.Year - 1))
	case "t":
		m.ctrl.GoToToday()

	case "tab":
		if len(m.view.SelectedEvents) > 0 {
			m.focus = focusList
			m.cursor = 0
		}
	case "a":
		return m, m.openForm(nil)
	}

	m.refresh()
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "tab", "esc":
		m.focus = focusGrid
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "j", "down":
		if m.cursor < len(m.view.SelectedEvents)-1 {
			m.cursor++
		}

	case "e":
		if ev, ok := m.current(); ok {
			staged, err := m.ctrl.EditEvent(ev.ID)
			if err != nil {
				m.report(err)
				break
			}
			m.refresh()
			return m, m.openForm(&staged)
		}
	case "d":
		if ev, ok := m.current(); ok {
			if m.ctrl.DeleteEvent(ev.ID) {
				m.message = fmt.Sprintf("Deleted %q", ev.Title)
			}
		}
	case "a":
		return m, m.openForm(nil)
	}

	m.refresh()
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if _, staged := m.ctrl.Editing(); staged {
			m.ctrl.CancelEdit()
		}
		m.closeForm()
		m.refresh()
		return m, nil

	case tea.KeyEnter:
		m.submit()
		m.refresh()
		return m, nil

	case tea.KeyTab, tea.KeyDown:
		return m, m.focusField((m.field + 1) % len(m.inputs))

	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusField((m.field + len(m.inputs) - 1) % len(m.inputs))
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

// moveSelection shifts the selected day and pulls the view along when the
// selection leaves the shown month.
func (m *Model) moveSelection(days int) {
	sel, err := model.ParseKey(string(m.view.Selected), m.ctrl.Location())
	if err != nil {
		m.report(err)
		return
	}
	next := sel.AddDate(0, 0, days)
	if next.Year() < 1 || next.Year() > 9999 {
		return
	}
	m.ctrl.SelectDate(next)
	if _, shown := m.view.Month.Cell(model.KeyFor(next)); !shown {
		m.report(m.ctrl.SetYear(next.Year()))
		m.report(m.ctrl.SetMonth(next.Month()))
	}
}

func (m *Model) submit() {
	start, err := model.ParseTimeOfDay(m.inputs[fieldStart].Value())
	if err != nil {
		m.message = err.Error()
		return
	}
	end, err := model.ParseTimeOfDay(m.inputs[fieldEnd].Value())
	if err != nil {
		m.message = err.Error()
		return
	}

	ev, err := m.ctrl.SubmitEvent(m.inputs[fieldTitle].Value(), start, end)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.message = fmt.Sprintf("Saved %q on %s", ev.Title, ev.Date)
	m.closeForm()
}

// openForm shows the event form, prefilled from ev when editing.
func (m *Model) openForm(ev *model.Event) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	if ev != nil {
		m.inputs[fieldTitle].SetValue(ev.Title)
		m.inputs[fieldStart].SetValue(ev.Start.String())
		m.inputs[fieldEnd].SetValue(ev.End.String())
	}
	m.focus = focusForm
	m.message = ""
	return m.focusField(fieldTitle)
}

func (m *Model) closeForm() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = focusGrid
}

func (m *Model) focusField(i int) tea.Cmd {
	m.inputs[m.field].Blur()
	m.field = i
	return m.inputs[i].Focus()
}

func (m *Model) current() (model.Event, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.SelectedEvents) {
		return model.Event{}, false
	}
	return m.view.SelectedEvents[m.cursor], true
}

func (m *Model) report(err error) {
	if err != nil {
		appLog.Debug("tui action rejected", "error", err.Error())
		m.message = err.Error()
	}
}

// refresh pulls the controller's view and keeps the list cursor in range.
func (m *Model) refresh() {
	m.view = m.ctrl.View()
	if n := len(m.view.SelectedEvents); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.focus == focusList && len(m.view.SelectedEvents) == 0 {
		m.focus = focusGrid
	}
}

// selectedTime is the selected day as a time, for headings.
func (m *Model) selectedTime() time.Time {
	t, _ := model.ParseKey(string(m.view.Selected), m.ctrl.Location())
	return t
}
