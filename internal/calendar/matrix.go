package calendar

import (
	"fmt"
	"time"

	"monthcal/internal/model"
)

// HasAnyer answers whether a day has at least one event.
type HasAnyer interface {
	HasAny(key model.DateKey) bool
}

// Cell is one slot of the month grid. Blank cells pad the first week and
// carry no day.
type Cell struct {
	Blank      bool          `json:"blank"`
	Day        int           `json:"day,omitempty"`
	Key        model.DateKey `json:"key,omitempty"`
	IsToday    bool          `json:"is_today,omitempty"`
	IsSelected bool          `json:"is_selected,omitempty"`
	HasEvents  bool          `json:"has_events,omitempty"`
}

// Month is the computed grid of one calendar month.
type Month struct {
	Year      int          `json:"year"`
	Month     time.Month   `json:"month"`
	WeekStart time.Weekday `json:"week_start"`
	// Offset is the number of leading blank cells.
	Offset int `json:"offset"`
	// Days is the number of days in the month.
	Days  int    `json:"days"`
	Cells []Cell `json:"cells"`
}

// Build computes the grid for year/month. It has no side effects: the same
// inputs always produce the same Month.
//
// Month values outside 1..12 roll into adjacent years the way time.Date
// does, so Build(y, 0, ...) is December of y-1. today and selected are
// compared by calendar day in their own locations. events may be nil.
func Build(year int, month time.Month, today, selected time.Time, events HasAnyer, weekStart time.Weekday) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()

	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	// Day 0 of the next month is the last day of this one.
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	todayKey := model.KeyFor(today)
	selectedKey := model.KeyFor(selected)

	cells := make([]Cell, 0, offset+days)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		key := model.KeyOf(year, month, d)
		cell := Cell{
			Day:        d,
			Key:        key,
			IsToday:    key == todayKey,
			IsSelected: key == selectedKey,
		}
		if events != nil {
			cell.HasEvents = events.HasAny(key)
		}
		cells = append(cells, cell)
	}

	return Month{
		Year:      year,
		Month:     month,
		WeekStart: weekStart,
		Offset:    offset,
		Days:      days,
		Cells:     cells,
	}
}

// Weeks splits the cells into rows of seven, padding the last row with
// blanks.
func (m Month) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, 6)
	for i := 0; i < len(m.Cells); i += 7 {
		end := i + 7
		row := make([]Cell, 0, 7)
		if end > len(m.Cells) {
			row = append(row, m.Cells[i:]...)
			for len(row) < 7 {
				row = append(row, Cell{Blank: true})
			}
		} else {
			row = append(row, m.Cells[i:end]...)
		}
		weeks = append(weeks, row)
	}
	return weeks
}

// Cell returns the cell of key if it belongs to this month.
func (m Month) Cell(key model.DateKey) (Cell, bool) {
	for _, c := range m.Cells {
		if !c.Blank && c.Key == key {
			return c, true
		}
	}
	return Cell{}, false
}

// Title is the human heading of the month, e.g. "February 2024".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Prev and Next return the neighbouring year/month pair.
func (m Month) Prev() (int, time.Month) {
	t := time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

func (m Month) Next() (int, time.Month) {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
