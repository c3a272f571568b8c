package model

import "time"

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// WeekDates returns the five weekday dates (Monday through Friday)
// starting at the given Monday.
func WeekDates(weekStart string) ([]string, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		dates = append(dates, FormatDate(start.AddDate(0, 0, i)))
	}
	return dates, nil
}

// WeekEnd returns the Sunday date of the week starting at the given
// Monday.
func WeekEnd(weekStart string) (string, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return "", err
	}
	return FormatDate(start.AddDate(0, 0, 6)), nil
}

// IsWeekend reports whether the date falls on a Saturday or Sunday.
// Unparseable dates are treated as weekdays.
func IsWeekend(date string) bool {
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DayName returns the short weekday label (Mon, Tue, ...) for a date.
func DayName(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return t.Format("Mon")
}

// MondayOf returns the Monday of the week containing t.
func MondayOf(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return FormatDate(t.AddDate(0, 0, -offset))
}
