package model

import "time"

// Commit represents a single source-control commit by the worker.
type Commit struct {
	Hash      string
	Message   string
	Timestamp time.Time
	Repo      string
}

// Message represents a single chat message sent by the worker.
type Message struct {
	Text        string
	Channel     string
	ChannelName string
	Timestamp   time.Time
	Permalink   string
}

// DailyWorkData holds one day's collected activity.
type DailyWorkData struct {
	Date      string // YYYY-MM-DD
	DayOfWeek string // Mon, Tue, ...
	Commits   []Commit
	Messages  []Message
}

// WeeklyWorkData holds one week's collected activity, one entry per
// collected weekday. Immutable once collected.
type WeeklyWorkData struct {
	WeekStart string // YYYY-MM-DD (Monday)
	WeekEnd   string // YYYY-MM-DD (Sunday)
	Days      []DailyWorkData
}

// PeriodActivity is the raw activity that produced one half-day note.
type PeriodActivity struct {
	Commits  []Commit
	Messages []Message
}

// DailySummary holds the generated AM/PM notes for one day plus the raw
// activity behind them. AMNotes and PMNotes are always non-empty: a
// placeholder substitutes when the period had no activity.
type DailySummary struct {
	Date    string
	AMNotes string
	PMNotes string
	RawAM   PeriodActivity
	RawPM   PeriodActivity
}

// WeeklySummary is the summarization output for one week. Unlike
// WeeklyWorkData it may be edited by hand before automation runs.
type WeeklySummary struct {
	WeekStart string
	WeekEnd   string
	Days      []DailySummary
}
