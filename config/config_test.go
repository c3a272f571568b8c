package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("REMOTE_EMAIL", "worker@example.com")
	t.Setenv("REMOTE_PASSWORD", "secret")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setCredentials(t)
	path := writeConfig(t, "remote:\n  timezone: UTC\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.AI.Model != "openai/gpt-4o-mini" {
		t.Errorf("model = %q, want default", cfg.AI.Model)
	}
	if cfg.AI.Language != "ko" {
		t.Errorf("language = %q, want ko", cfg.AI.Language)
	}
	if cfg.Scheduler.Time != "18:00" {
		t.Errorf("scheduler.time = %q, want 18:00", cfg.Scheduler.Time)
	}
	if cfg.Remote.StatePath != "./auth-state.json" {
		t.Errorf("state_path = %q, want default", cfg.Remote.StatePath)
	}
	if cfg.DBPath != "./timesheet.db" {
		t.Errorf("db_path = %q, want default", cfg.DBPath)
	}
}

func TestLoadReadsSecretsFromEnvironment(t *testing.T) {
	setCredentials(t)
	t.Setenv("SLACK_USER_TOKEN", "xoxp-token")
	t.Setenv("SLACK_USER_ID", "U123")
	t.Setenv("GITHUB_ACCESS_TOKEN", "ghp-token")
	t.Setenv("GITHUB_USERNAME", "octo")

	path := writeConfig(t, "remote:\n  timezone: UTC\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.Email != "worker@example.com" {
		t.Errorf("email = %q", cfg.Remote.Email)
	}
	if cfg.Slack.UserToken != "xoxp-token" || cfg.Slack.UserID != "U123" {
		t.Errorf("slack = %+v", cfg.Slack)
	}
	if cfg.GitHub.AccessToken != "ghp-token" || cfg.GitHub.Username != "octo" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("REMOTE_EMAIL", "")
	t.Setenv("REMOTE_PASSWORD", "")
	path := writeConfig(t, "remote:\n  timezone: UTC\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestLoadRejectsBadLanguage(t *testing.T) {
	setCredentials(t)
	path := writeConfig(t, "ai:\n  language: fr\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestLoadRejectsBadScheduleTime(t *testing.T) {
	setCredentials(t)
	for _, bad := range []string{"25:00", "9:00", "12:60", "noon"} {
		path := writeConfig(t, "scheduler:\n  time: \""+bad+"\"\n")
		if _, err := Load(path); err == nil {
			t.Errorf("expected error for time %q", bad)
		}
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	setCredentials(t)
	path := writeConfig(t, "remote:\n  timezone: Mars/Olympus\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
