package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Credentials come from the
// environment (optionally a .env file); everything else from YAML.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Slack     SlackConfig     `yaml:"slack"`
	GitHub    GitHubConfig    `yaml:"github"`
	AI        AIConfig        `yaml:"ai"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	DBPath    string          `yaml:"db_path"`
	LogLevel  string          `yaml:"log_level"`
}

// RemoteConfig describes the work-tracking site account.
type RemoteConfig struct {
	Email     string `yaml:"-"`
	Password  string `yaml:"-"`
	Timezone  string `yaml:"timezone"`
	StatePath string `yaml:"state_path"`
}

// SlackConfig describes the chat-message source.
type SlackConfig struct {
	UserToken string `yaml:"-"`
	UserID    string `yaml:"-"`
}

// Repo identifies one repository to collect commits from.
type Repo struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// GitHubConfig describes the commit source.
type GitHubConfig struct {
	AccessToken string `yaml:"-"`
	Username    string `yaml:"username"`
	Repos       []Repo `yaml:"repos"`
}

// AIConfig describes the summarization model.
type AIConfig struct {
	APIKey   string `yaml:"-"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"` // "ko" or "en"
}

// BrowserConfig controls the automation browser.
type BrowserConfig struct {
	Headless bool    `yaml:"headless"`
	SlowMo   float64 `yaml:"slow_mo"`
}

// SchedulerConfig controls the daily automatic run.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Time         string `yaml:"time"` // HH:MM
	SkipWeekends bool   `yaml:"skip_weekends"`
}

// scheduleTimeRegex validates HH:MM format with proper ranges.
var scheduleTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file, merges .env/environment
// secrets, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	// Best effort: a missing .env just means secrets come from the
	// process environment.
	_ = godotenv.Load()

	applySecrets(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Path returns the config file path from environment or default.
func Path() string {
	if path := os.Getenv("TIMESHEET_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applySecrets(cfg *Config) {
	cfg.Remote.Email = os.Getenv("REMOTE_EMAIL")
	cfg.Remote.Password = os.Getenv("REMOTE_PASSWORD")
	cfg.Slack.UserToken = os.Getenv("SLACK_USER_TOKEN")
	cfg.Slack.UserID = os.Getenv("SLACK_USER_ID")
	cfg.GitHub.AccessToken = os.Getenv("GITHUB_ACCESS_TOKEN")
	if u := os.Getenv("GITHUB_USERNAME"); u != "" {
		cfg.GitHub.Username = u
	}
	cfg.AI.APIKey = os.Getenv("OPENROUTER_API_KEY")
}

func applyDefaults(cfg *Config) {
	if cfg.Remote.Timezone == "" {
		cfg.Remote.Timezone = "Asia/Seoul"
	}
	if cfg.Remote.StatePath == "" {
		cfg.Remote.StatePath = "./auth-state.json"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "openai/gpt-4o-mini"
	}
	if cfg.AI.Language == "" {
		cfg.AI.Language = "ko"
	}
	if cfg.Scheduler.Time == "" {
		cfg.Scheduler.Time = "18:00"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./timesheet.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.Remote.Email == "" || cfg.Remote.Password == "" {
		return fmt.Errorf("REMOTE_EMAIL and REMOTE_PASSWORD are required")
	}
	if cfg.AI.Language != "ko" && cfg.AI.Language != "en" {
		return fmt.Errorf("ai.language must be \"ko\" or \"en\", got %q", cfg.AI.Language)
	}
	if !scheduleTimeRegex.MatchString(cfg.Scheduler.Time) {
		return fmt.Errorf("scheduler.time must be in HH:MM format (00:00-23:59), got %q", cfg.Scheduler.Time)
	}
	if _, err := time.LoadLocation(cfg.Remote.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Remote.Timezone, err)
	}
	return nil
}
