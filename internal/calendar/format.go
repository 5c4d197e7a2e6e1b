package calendar

import (
	"fmt"
	"io"
	"strings"
)

const cellWidth = 5

// Format writes a cal(1) style grid of m. The selected day is bracketed,
// today is prefixed with '>' and days with events get a trailing '*'.
//
//	           May 2024
//	 Su   Mo   Tu   We   Th   Fr   Sa
//	                 1 *> 2  [ 3]   4
func Format(w io.Writer, m Month) error {
	width := cellWidth * 7

	var b strings.Builder
	title := m.Title()
	if pad := (width - len(title)) / 2; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(title)
	b.WriteString("\n")

	for _, h := range WeekdayHeaders(m.WeekStart) {
		b.WriteString(" " + h + "  ")
	}
	b.WriteString("\n")

	for _, week := range m.Weeks() {
		for _, c := range week {
			b.WriteString(formatCell(c))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, trimLines(b.String()))
	return err
}

func formatCell(c Cell) string {
	if c.Blank {
		return strings.Repeat(" ", cellWidth)
	}
	left, right, mark := " ", " ", " "
	if c.IsToday {
		left = ">"
	}
	if c.IsSelected {
		left, right = "[", "]"
	}
	if c.HasEvents {
		mark = "*"
	}
	return fmt.Sprintf("%s%2d%s%s", left, c.Day, right, mark)
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
