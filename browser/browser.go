// Package browser abstracts the UI-automation driver so the automation
// engine can be exercised against a fake without a real browser.
package browser

import (
	"context"
	"time"
)

// SessionOptions controls how a browsing session is opened.
type SessionOptions struct {
	// StatePath seeds the session with persisted authentication state.
	// Empty means a fresh, unauthenticated session.
	StatePath string
}

// Driver owns a browser process and opens sessions against it.
type Driver interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session is one browsing context with a single page. All waits are
// bounded by the given timeout; IsVisible never fails, it reports false
// on timeout.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL() string
	IsVisible(ctx context.Context, selector string, timeout time.Duration) bool
	Click(ctx context.Context, selector string) error
	// Fill clears the field before writing text.
	Fill(ctx context.Context, selector, text string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	// WaitURL blocks until the current URL satisfies match.
	WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error
	// SaveState persists the session's authentication state to path.
	SaveState(path string) error
	Close() error
}
