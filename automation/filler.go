package automation

import (
	"context"
	"fmt"
	"strings"

	"timesheet-automation/browser"
	"timesheet-automation/model"
	"timesheet-automation/progress"
)

// Period identifies one half-day entry.
type Period string

const (
	PeriodAM Period = "am"
	PeriodPM Period = "pm"
)

// The remote UI labels entries with slightly different time ranges
// across accounts and shifts; probe them in preference order.
var (
	amTimeRanges = []string{"09:00 to 12:00", "9:00 to 12:00"}
	pmTimeRanges = []string{"13:00 to 18:00", "13:00 to 17:00", "14:00 to 18:00"}
)

// fillEntry writes the period's notes into the matching editable entry
// and reports whether one was found and updated. The edit dialog is
// never left open on return. A missing entry is not an error: some days
// legitimately have none (PTO). Exhausted retries degrade to one error
// log entry for the period; the run continues.
func (e *Engine) fillEntry(ctx context.Context, sess browser.Session, day model.DailySummary, period Period, tr *progress.Tracker) bool {
	notes := day.AMNotes
	timeRanges := amTimeRanges
	if period == PeriodPM {
		notes = day.PMNotes
		timeRanges = pmTimeRanges
	}

	for _, timeRange := range timeRanges {
		editButton := browser.EditEntryButton(timeRange)
		if !sess.IsVisible(ctx, editButton, browser.EntryProbeTimeout) {
			continue
		}

		err := e.retry.Do(ctx, func() error {
			return e.fillOnce(ctx, sess, editButton, notes)
		})
		if err == nil {
			return true
		}

		tr.Log(progress.LevelError, fmt.Sprintf("failed to fill %s entry for %s: %v",
			strings.ToUpper(string(period)), day.Date, err))
		e.dismissErrorDialog(ctx, sess)
	}

	return false
}

// fillOnce performs a single click-edit-save cycle.
func (e *Engine) fillOnce(ctx context.Context, sess browser.Session, editButton, notes string) error {
	if err := sess.Click(ctx, editButton); err != nil {
		return err
	}
	if err := sess.WaitVisible(ctx, browser.EditDialog, browser.ModalAppearTimeout); err != nil {
		return err
	}
	if err := sess.WaitVisible(ctx, browser.NotesField, browser.NotesFieldTimeout); err != nil {
		return err
	}
	if err := sess.Fill(ctx, browser.NotesField, notes); err != nil {
		return err
	}
	if err := sess.Click(ctx, browser.SaveButton); err != nil {
		return err
	}
	if err := sess.WaitHidden(ctx, browser.EditDialog, browser.ModalHiddenTimeout); err != nil {
		return err
	}
	// Give the backend a moment to settle before the next entry.
	e.sleep(ctx, entryDelay)
	return nil
}

// dismissErrorDialog clears a lingering error dialog, best effort.
func (e *Engine) dismissErrorDialog(ctx context.Context, sess browser.Session) {
	if !sess.IsVisible(ctx, browser.DismissButton, browser.DismissProbeTimeout) {
		return
	}
	if err := sess.Click(ctx, browser.DismissButton); err != nil {
		return
	}
	e.sleep(ctx, entryDelay)
}
