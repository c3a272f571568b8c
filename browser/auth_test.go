package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeSession scripts one browsing session.
type fakeSession struct {
	url        string
	navErr     error
	waitURLErr error
	filled     map[string]string
	clicked    []string
	savedTo    []string
	closed     bool
	// onClick lets a test simulate navigation caused by a click.
	onClick func(s *fakeSession, selector string)
}

func newFakeSession(url string) *fakeSession {
	return &fakeSession{url: url, filled: map[string]string{}}
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	if s.navErr != nil {
		return s.navErr
	}
	return nil
}

func (s *fakeSession) URL() string { return s.url }

func (s *fakeSession) IsVisible(_ context.Context, _ string, _ time.Duration) bool { return false }

func (s *fakeSession) Click(_ context.Context, selector string) error {
	s.clicked = append(s.clicked, selector)
	if s.onClick != nil {
		s.onClick(s, selector)
	}
	return nil
}

func (s *fakeSession) Fill(_ context.Context, selector, text string) error {
	s.filled[selector] = text
	return nil
}

func (s *fakeSession) WaitVisible(_ context.Context, _ string, _ time.Duration) error { return nil }
func (s *fakeSession) WaitHidden(_ context.Context, _ string, _ time.Duration) error  { return nil }

func (s *fakeSession) WaitURL(_ context.Context, match func(string) bool, _ time.Duration) error {
	if s.waitURLErr != nil {
		return s.waitURLErr
	}
	if !match(s.url) {
		return errors.New("url never matched")
	}
	return nil
}

func (s *fakeSession) SaveState(path string) error {
	s.savedTo = append(s.savedTo, path)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDriver hands out scripted sessions in order.
type fakeDriver struct {
	sessions []*fakeSession
	opened   []SessionOptions
	next     int
}

func (d *fakeDriver) NewSession(_ context.Context, opts SessionOptions) (Session, error) {
	d.opened = append(d.opened, opts)
	if d.next >= len(d.sessions) {
		return nil, errors.New("no more scripted sessions")
	}
	s := d.sessions[d.next]
	d.next++
	return s, nil
}

func (d *fakeDriver) Close() error { return nil }

func stateFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth-state.json")
	if err := os.WriteFile(path, []byte(`{"cookies":[]}`), 0600); err != nil {
		t.Fatalf("write state file: %v", err)
	}
	return path
}

var testCreds = Credentials{Email: "worker@example.com", Password: "secret"}

func TestEnsureAuthenticatedValidExistingSession(t *testing.T) {
	probe := newFakeSession(TimeTrackingURL)
	driver := &fakeDriver{sessions: []*fakeSession{probe}}
	m := NewSessionManager(driver, testCreds, stateFile(t))

	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated failed: %v", err)
	}

	if len(driver.opened) != 1 {
		t.Fatalf("opened %d sessions, want 1 probe only", len(driver.opened))
	}
	if driver.opened[0].StatePath == "" {
		t.Error("probe did not use persisted state")
	}
	if !probe.closed {
		t.Error("probe session not closed")
	}
	if len(probe.filled) != 0 {
		t.Error("probe must not attempt login")
	}
}

func TestEnsureAuthenticatedStaleSessionTriggersLogin(t *testing.T) {
	probe := newFakeSession(LoginURL) // stale: redirected to login
	login := newFakeSession(LoginURL)
	login.onClick = func(s *fakeSession, selector string) {
		if selector == LoginButton {
			s.url = TimeTrackingURL
		}
	}
	driver := &fakeDriver{sessions: []*fakeSession{probe, login}}
	state := stateFile(t)
	m := NewSessionManager(driver, testCreds, state)

	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated failed: %v", err)
	}

	if len(driver.opened) != 2 {
		t.Fatalf("opened %d sessions, want probe + login", len(driver.opened))
	}
	if driver.opened[1].StatePath != "" {
		t.Error("login session must not reuse stale persisted state")
	}
	if login.filled[EmailInput] != testCreds.Email || login.filled[PasswordInput] != testCreds.Password {
		t.Errorf("credentials not filled: %v", login.filled)
	}
	if len(login.savedTo) != 1 || login.savedTo[0] != state {
		t.Errorf("session state not persisted to %q: %v", state, login.savedTo)
	}
}

func TestEnsureAuthenticatedNoStateFile(t *testing.T) {
	login := newFakeSession(LoginURL)
	login.onClick = func(s *fakeSession, selector string) {
		if selector == LoginButton {
			s.url = TimeTrackingURL
		}
	}
	driver := &fakeDriver{sessions: []*fakeSession{login}}
	m := NewSessionManager(driver, testCreds, filepath.Join(t.TempDir(), "absent.json"))

	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("EnsureAuthenticated failed: %v", err)
	}
	if len(driver.opened) != 1 {
		t.Errorf("opened %d sessions, want login only (no probe)", len(driver.opened))
	}
}

func TestEnsureAuthenticatedProbeErrorFallsBackToLogin(t *testing.T) {
	probe := newFakeSession("")
	probe.navErr = errors.New("net::ERR_TIMED_OUT")
	login := newFakeSession(LoginURL)
	login.onClick = func(s *fakeSession, selector string) {
		if selector == LoginButton {
			s.url = TimeTrackingURL
		}
	}
	driver := &fakeDriver{sessions: []*fakeSession{probe, login}}
	m := NewSessionManager(driver, testCreds, stateFile(t))

	if err := m.EnsureAuthenticated(context.Background()); err != nil {
		t.Fatalf("probe failure must not be fatal: %v", err)
	}
	if len(login.savedTo) != 1 {
		t.Error("fresh login did not persist state")
	}
}

func TestEnsureAuthenticatedLoginFailureIsFatal(t *testing.T) {
	login := newFakeSession(LoginURL)
	login.waitURLErr = errors.New("timed out waiting for URL change")
	driver := &fakeDriver{sessions: []*fakeSession{login}}
	m := NewSessionManager(driver, testCreds, filepath.Join(t.TempDir(), "absent.json"))

	if err := m.EnsureAuthenticated(context.Background()); err == nil {
		t.Fatal("expected error when login never completes")
	}
	if !login.closed {
		t.Error("login session must be closed on failure")
	}
}
