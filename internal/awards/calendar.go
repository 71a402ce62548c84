package awards

import (
	"strconv"
	"time"
)

// SeasonOf returns the season label of a game date: its calendar year.
func SeasonOf(date time.Time) string {
	return strconv.Itoa(date.Year())
}

// WeekStartOf returns the Monday on or before date, at midnight UTC.
func WeekStartOf(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}
