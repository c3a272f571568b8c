// Package automation drives the remote timesheet workflow: reopen the
// week, write notes into each workday's AM/PM entries, resubmit.
package automation

import (
	"context"
	"fmt"
	"time"

	"timesheet-automation/browser"
	"timesheet-automation/model"
	"timesheet-automation/progress"
	"timesheet-automation/retry"
)

// DriverFactory launches a browser for one run. The engine closes it on
// every exit path.
type DriverFactory func() (browser.Driver, error)

type authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
}

const (
	settleDelay = 2 * time.Second
	entryDelay  = 500 * time.Millisecond
)

// Engine executes one timesheet automation run at a time.
type Engine struct {
	newDriver DriverFactory
	creds     browser.Credentials
	statePath string
	retry     retry.Policy
	sleep     func(context.Context, time.Duration)
	newAuth   func(browser.Driver) authenticator
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the per-entry retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// NewEngine creates an automation engine. statePath is the persisted
// session state location shared with the session manager.
func NewEngine(newDriver DriverFactory, creds browser.Credentials, statePath string, opts ...Option) *Engine {
	e := &Engine{
		newDriver: newDriver,
		creds:     creds,
		statePath: statePath,
		retry:     retry.Default,
		sleep:     sleepCtx,
	}
	e.newAuth = func(d browser.Driver) authenticator {
		return browser.NewSessionManager(d, e.creds, e.statePath)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run realizes the weekly summary in the remote UI. Weekend days in the
// summary are excluded up front; totalDays counts weekdays only. Any
// failure outside per-entry filling aborts the run with a terminal
// error snapshot; already-saved entries stay saved remotely.
func (e *Engine) Run(ctx context.Context, summary *model.WeeklySummary, cb progress.Callback) error {
	var workdays []model.DailySummary
	for _, day := range summary.Days {
		if !model.IsWeekend(day.Date) {
			workdays = append(workdays, day)
		}
	}

	tr := progress.NewTracker(progress.StatusAutomating, len(workdays), cb)

	if err := e.run(ctx, workdays, tr); err != nil {
		tr.Log(progress.LevelError, fmt.Sprintf("automation failed: %v", err))
		tr.Fail(err.Error())
		return err
	}

	tr.Done()
	return nil
}

func (e *Engine) run(ctx context.Context, workdays []model.DailySummary, tr *progress.Tracker) error {
	driver, err := e.newDriver()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer driver.Close()

	if err := e.newAuth(driver).EnsureAuthenticated(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	tr.Log(progress.LevelInfo, "authentication verified")

	sess, err := driver.NewSession(ctx, browser.SessionOptions{StatePath: e.statePath})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	tr.Log(progress.LevelInfo, "navigating to time tracking page")
	if err := sess.Navigate(ctx, browser.TimeTrackingURL, browser.NavigationTimeout); err != nil {
		return err
	}
	e.sleep(ctx, settleDelay)

	// A prior partial run may have left the timesheet open for editing,
	// in which case the reopen control is simply absent.
	if sess.IsVisible(ctx, browser.ReopenButton, browser.ControlProbeTimeout) {
		if err := sess.Click(ctx, browser.ReopenButton); err != nil {
			return fmt.Errorf("reopen timesheet: %w", err)
		}
		e.sleep(ctx, settleDelay)
		tr.Log(progress.LevelSuccess, "timesheet reopened")
	} else {
		tr.Log(progress.LevelInfo, "timesheet already open for editing")
	}

	for i, day := range workdays {
		// Cooperative cancellation checkpoint: a day in flight always
		// finishes, the next one does not start.
		if err := ctx.Err(); err != nil {
			return err
		}

		tr.SetCurrentDay(day.Date)
		tr.Log(progress.LevelInfo, "processing "+day.Date)

		amFilled := e.fillEntry(ctx, sess, day, PeriodAM, tr)
		pmFilled := e.fillEntry(ctx, sess, day, PeriodPM, tr)

		if amFilled || pmFilled {
			tr.Log(progress.LevelSuccess, "completed "+day.Date)
		} else {
			tr.Log(progress.LevelWarn, "no editable entries found for "+day.Date)
		}

		tr.SetCompleted(i + 1)
	}

	if sess.IsVisible(ctx, browser.ResubmitButton, browser.ControlProbeTimeout) {
		tr.Log(progress.LevelInfo, "resubmitting timesheet")
		if err := sess.Click(ctx, browser.ResubmitButton); err != nil {
			return fmt.Errorf("resubmit timesheet: %w", err)
		}
		if err := sess.WaitVisible(ctx, browser.ResubmitHoursButton, browser.ModalAppearTimeout); err != nil {
			return fmt.Errorf("resubmit confirmation: %w", err)
		}
		if err := sess.Click(ctx, browser.ResubmitHoursButton); err != nil {
			return fmt.Errorf("confirm resubmission: %w", err)
		}
		e.sleep(ctx, settleDelay)
		tr.Log(progress.LevelSuccess, "timesheet resubmitted")
	} else {
		tr.Log(progress.LevelWarn, "no resubmit button found - timesheet may not need resubmission")
	}

	// The run refreshed cookies; persist them for the next session.
	if err := sess.SaveState(e.statePath); err != nil {
		return err
	}

	tr.Log(progress.LevelSuccess, "automation completed successfully")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
