package models

import "time"

// TimeWindow restricts ranking output to entries created within the
// window. Boundaries are inclusive of the start instant.
type TimeWindow string

const (
	WindowAll   TimeWindow = "all"
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// ParseTimeWindow maps a query parameter to a window. Empty and unknown
// values fall back to WindowAll so a bad tab parameter never breaks the
// read path.
func ParseTimeWindow(s string) TimeWindow {
	switch TimeWindow(s) {
	case WindowToday, WindowWeek, WindowMonth:
		return TimeWindow(s)
	default:
		return WindowAll
	}
}

// Start returns the inclusive lower bound of the window evaluated against
// now. The zero time means unbounded. Weeks start on Sunday, months on
// the first, both at local midnight.
func (w TimeWindow) Start(now time.Time) time.Time {
	switch w {
	case WindowToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case WindowWeek:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return dayStart.AddDate(0, 0, -int(now.Weekday()))
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}
