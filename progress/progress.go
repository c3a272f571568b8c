// Package progress carries the uniform run-reporting surface shared by
// collection, summarization and automation. Every state change emits a
// complete snapshot, never a diff.
package progress

import "time"

// Status identifies which stage of a run is active.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusCollecting  Status = "collecting"
	StatusSummarizing Status = "summarizing"
	StatusAutomating  Status = "automating"
	StatusDone        Status = "done"
	StatusError       Status = "error"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// LogEntry is one line of a run's append-only audit trail.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
}

// Snapshot is the complete state of a run at one instant. Consumers
// must treat each snapshot as authoritative, not incremental.
type Snapshot struct {
	Status        Status
	CurrentDay    string
	TotalDays     int
	CompletedDays int
	Logs          []LogEntry
	Err           string
}

// Callback receives a snapshot after every state change.
type Callback func(Snapshot)

// Tracker accumulates one stage's log and emits snapshots through an
// optional callback. The zero callback is valid and silences emission.
// CompletedDays never decreases and never exceeds TotalDays.
type Tracker struct {
	status        Status
	currentDay    string
	totalDays     int
	completedDays int
	logs          []LogEntry
	err           string
	cb            Callback
	now           func() time.Time
}

// NewTracker creates a tracker for one stage.
func NewTracker(status Status, totalDays int, cb Callback) *Tracker {
	return &Tracker{
		status:    status,
		totalDays: totalDays,
		cb:        cb,
		now:       time.Now,
	}
}

// Log appends an entry and re-emits the current snapshot.
func (t *Tracker) Log(level Level, message string) {
	t.logs = append(t.logs, LogEntry{Timestamp: t.now(), Level: level, Message: message})
	t.emit()
}

// SetCurrentDay records the day being processed and re-emits.
func (t *Tracker) SetCurrentDay(date string) {
	t.currentDay = date
	t.emit()
}

// SetCompleted advances the completed-day count and re-emits.
// Decreases are ignored; the count is capped at TotalDays.
func (t *Tracker) SetCompleted(n int) {
	if n < t.completedDays {
		n = t.completedDays
	}
	if n > t.totalDays {
		n = t.totalDays
	}
	t.completedDays = n
	t.emit()
}

// Done marks the stage complete with all days finished and re-emits.
func (t *Tracker) Done() {
	t.status = StatusDone
	t.completedDays = t.totalDays
	t.emit()
}

// Fail marks the stage failed with the given message and re-emits.
func (t *Tracker) Fail(errMsg string) {
	t.status = StatusError
	t.err = errMsg
	t.emit()
}

// Snapshot returns a copy of the current state. The log slice is
// copied so callers cannot mutate the tracker's history.
func (t *Tracker) Snapshot() Snapshot {
	logs := make([]LogEntry, len(t.logs))
	copy(logs, t.logs)
	return Snapshot{
		Status:        t.status,
		CurrentDay:    t.currentDay,
		TotalDays:     t.totalDays,
		CompletedDays: t.completedDays,
		Logs:          logs,
		Err:           t.err,
	}
}

func (t *Tracker) emit() {
	if t.cb == nil {
		return
	}
	t.cb(t.Snapshot())
}
