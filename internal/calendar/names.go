package calendar

import (
	"strings"
	"time"
)

// MonthNames lists January..December.
func MonthNames() []string {
	names := make([]string, 12)
	for i := range names {
		names[i] = time.Month(i + 1).String()
	}
	return names
}

// WeekdayHeaders returns two-letter weekday labels starting at weekStart.
func WeekdayHeaders(weekStart time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((int(weekStart) + i) % 7).String()[:2]
	}
	return out
}

// YearRange returns center-span..center+span inclusive, the values offered
// by the year selector.
func YearRange(center, span int) []int {
	if span < 0 {
		span = 0
	}
	out := make([]int, 0, 2*span+1)
	for y := center - span; y <= center+span; y++ {
		out = append(out, y)
	}
	return out
}

// ParseWeekStart maps "sunday"/"monday" to a weekday. Anything else is
// Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}
