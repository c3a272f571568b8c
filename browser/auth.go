package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Credentials are the tracking-site login credentials.
type Credentials struct {
	Email    string
	Password string
}

// SessionManager establishes and persists an authenticated session at a
// single on-disk location.
type SessionManager struct {
	driver    Driver
	creds     Credentials
	statePath string
}

// NewSessionManager creates a session manager bound to one driver and
// one persisted state location.
func NewSessionManager(driver Driver, creds Credentials, statePath string) *SessionManager {
	return &SessionManager{driver: driver, creds: creds, statePath: statePath}
}

// StatePath returns the persisted session state location.
func (m *SessionManager) StatePath() string {
	return m.statePath
}

// EnsureAuthenticated guarantees that on success a valid session exists
// at the persisted location. An existing state file is probed first;
// any probe failure counts as "not valid" and falls through to a fresh
// login. Only a fresh-login failure is returned to the caller.
func (m *SessionManager) EnsureAuthenticated(ctx context.Context) error {
	if _, err := os.Stat(m.statePath); err == nil {
		if m.validateExisting(ctx) {
			slog.Debug("existing session is valid", "state_path", m.statePath)
			return nil
		}
		slog.Info("persisted session no longer valid, logging in again")
	}

	return m.freshLogin(ctx)
}

// validateExisting probes the persisted state in a throwaway session.
// Errors are deliberately swallowed: a broken probe means a fresh login.
func (m *SessionManager) validateExisting(ctx context.Context) bool {
	sess, err := m.driver.NewSession(ctx, SessionOptions{StatePath: m.statePath})
	if err != nil {
		return false
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, TimeTrackingURL, NavigationTimeout); err != nil {
		return false
	}

	return !IsLoginURL(sess.URL())
}

func (m *SessionManager) freshLogin(ctx context.Context) error {
	sess, err := m.driver.NewSession(ctx, SessionOptions{})
	if err != nil {
		return fmt.Errorf("open login session: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, LoginURL, NavigationTimeout); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := sess.Fill(ctx, EmailInput, m.creds.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := sess.Fill(ctx, PasswordInput, m.creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := sess.Click(ctx, LoginButton); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	// The login is complete once the URL leaves the login page. There
	// is no credential retry: bad credentials surface as this timeout.
	if err := sess.WaitURL(ctx, func(url string) bool { return !IsLoginURL(url) }, LoginTimeout); err != nil {
		return fmt.Errorf("login did not complete: %w", err)
	}

	if err := sess.SaveState(m.statePath); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}

	slog.Info("logged in and persisted session state", "state_path", m.statePath)
	return nil
}
