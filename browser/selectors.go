package browser

import (
	"fmt"
	"strings"
	"time"
)

// Remote UI locations and selectors, derived from manual exploration of
// the tracking site.

const (
	LoginURL        = "https://employ.remote.com/login"
	TimeTrackingURL = "https://employ.remote.com/dashboard/time-tracking/"
)

const (
	// Login page
	EmailInput    = `input[type="email"]`
	PasswordInput = `input[type="password"]`
	LoginButton   = `button[type="submit"]`

	// Time tracking page
	ReopenButton        = `button:has-text("Reopen timesheet")`
	ResubmitButton      = `button:has-text("Resubmit timesheet")`
	ResubmitHoursButton = `button:has-text("Resubmit hours")`

	// Edit modal
	EditDialog    = `[role="dialog"]`
	NotesField    = `[role="dialog"] [placeholder="Add notes"]`
	SaveButton    = `[data-testid="modal-save-button"]`
	DismissButton = `button:has-text("Dismiss")`
)

// EditEntryButton returns the selector for the edit control of one
// half-day entry. The label text varies slightly across accounts, so
// callers probe several time ranges.
func EditEntryButton(timeRange string) string {
	return fmt.Sprintf(`button:has-text("Edit time entry for %s")`, timeRange)
}

// Bounded waits for the remote UI. Navigation and login are slow paths;
// modal transitions are quick.
const (
	NavigationTimeout   = 30 * time.Second
	LoginTimeout        = 30 * time.Second
	ModalAppearTimeout  = 10 * time.Second
	ModalHiddenTimeout  = 10 * time.Second
	NotesFieldTimeout   = 3 * time.Second
	ControlProbeTimeout = 3 * time.Second
	EntryProbeTimeout   = 1 * time.Second
	DismissProbeTimeout = 1 * time.Second
)

// IsLoginURL reports whether the session landed back on the login page,
// which is how an expired session announces itself.
func IsLoginURL(url string) bool {
	return strings.Contains(url, "/login")
}
