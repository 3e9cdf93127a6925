package nlu

import (
	"strings"
	"time"
)

// TimeWindow is a half-open [From, To) period named in a history request.
type TimeWindow struct {
	From  time.Time
	To    time.Time
	Label string
}

const defaultWindowDays = 7

// ParseTimeWindow reads the period of a history question relative to now.
// Without a recognised period it covers the last seven days.
func ParseTimeWindow(text string, now time.Time) TimeWindow {
	lower := strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "yesterday"):
		return TimeWindow{From: today.AddDate(0, 0, -1), To: today, Label: "yesterday"}
	case strings.Contains(lower, "today"):
		return TimeWindow{From: today, To: now, Label: "today"}
	case strings.Contains(lower, "last week"), strings.Contains(lower, "previous week"):
		start := startOfWeek(today)
		return TimeWindow{From: start.AddDate(0, 0, -7), To: start, Label: "last week"}
	case strings.Contains(lower, "week"):
		return TimeWindow{From: startOfWeek(today), To: now, Label: "this week"}
	case strings.Contains(lower, "last month"), strings.Contains(lower, "previous month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{From: start.AddDate(0, -1, 0), To: start, Label: "last month"}
	case strings.Contains(lower, "month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{From: start, To: now, Label: "this month"}
	case strings.Contains(lower, "year"):
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{From: start, To: now, Label: "this year"}
	}
	return TimeWindow{From: now.AddDate(0, 0, -defaultWindowDays), To: now, Label: "the last 7 days"}
}

// startOfWeek returns the Monday of day's week.
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
