package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"monthcal/internal/calendar"
)

type Styles struct {
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Today    lipgloss.Style
	Dot      lipgloss.Style
	Header   lipgloss.Style
	Title    lipgloss.Style
	Cursor   lipgloss.Style
	Help     lipgloss.Style
	Message  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("220")).
			Bold(true),
		Today: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Dot: lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
	}
}

const cellWidth = 4

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewGrid())
	b.WriteString("\n")
	b.WriteString(m.viewEvents())

	if m.focus == focusForm {
		b.WriteString("\n")
		b.WriteString(m.viewForm())
	}
	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Message.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.helpLine()))
	return b.String()
}

func (m *Model) viewGrid() string {
	month := m.view.Month
	width := cellWidth * 7

	var b strings.Builder
	b.WriteString(m.styles.Title.Width(width).Align(lipgloss.Center).Render(month.Title()))
	b.WriteString("\n")

	for _, h := range calendar.WeekdayHeaders(month.WeekStart) {
		b.WriteString(m.styles.Header.Render(fmt.Sprintf(" %2s ", h)))
	}
	b.WriteString("\n")

	for _, week := range month.Weeks() {
		for _, c := range week {
			b.WriteString(m.renderCell(c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderCell(c calendar.Cell) string {
	if c.Blank {
		return strings.Repeat(" ", cellWidth)
	}

	day := fmt.Sprintf("%2d", c.Day)
	switch {
	case c.IsSelected:
		day = m.styles.Selected.Render(day)
	case c.IsToday:
		day = m.styles.Today.Render(day)
	default:
		day = m.styles.Normal.Render(day)
	}

	mark := " "
	if c.HasEvents {
		mark = m.styles.Dot.Render("•")
	}
	return " " + day + mark
}

func (m *Model) viewEvents() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.selectedTime().Format("Monday, January 2 2006")))
	b.WriteString("\n")

	if len(m.view.SelectedEvents) == 0 {
		b.WriteString(m.styles.Help.Render("  no events"))
		b.WriteString("\n")
		return b.String()
	}
	for i, ev := range m.view.SelectedEvents {
		prefix := "  "
		if m.focus == focusList && i == m.cursor {
			prefix = m.styles.Cursor.Render("> ")
		}
		line := fmt.Sprintf("%s - %s  %s", ev.Start, ev.End, ev.Title)
		if m.view.Editing != nil && m.view.Editing.ID == ev.ID {
			line += " (editing)"
		}
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

func (m *Model) viewForm() string {
	heading := "New event"
	if m.view.Editing != nil {
		heading = "Edit event"
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(heading))
	b.WriteString("\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) helpLine() string {
	switch m.focus {
	case focusForm:
		return "tab: next field • enter: save • esc: cancel"
	case focusList:
		return "↑/↓: move • e: edit • d: delete • a: add • tab: grid • q: quit"
	default:
		return "←↓↑→/hjkl: move • n/p: month • N/P: year • t: today • a: add • tab: events • q: quit"
	}
}
