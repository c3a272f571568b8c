package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"timesheet-automation/model"
)

const (
	defaultModel   = "openai/gpt-4o-mini"
	defaultBaseURL = "https://openrouter.ai"
)

// Summarizer generates half-day work notes using an OpenRouter model.
type Summarizer struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	location   *time.Location
	httpClient *http.Client
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithModel sets the OpenRouter model identifier.
func WithModel(model string) Option {
	return func(s *Summarizer) {
		s.model = model
	}
}

// WithLanguage sets the note language ("ko" or "en").
func WithLanguage(language string) Option {
	return func(s *Summarizer) {
		s.language = language
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(s *Summarizer) {
		s.baseURL = url
	}
}

// WithLocation sets the timezone used to split activity into AM/PM.
func WithLocation(loc *time.Location) Option {
	return func(s *Summarizer) {
		s.location = loc
	}
}

// NewSummarizer creates an OpenRouter-backed summarizer.
func NewSummarizer(apiKey string, opts ...Option) *Summarizer {
	s := &Summarizer{
		apiKey:     apiKey,
		model:      defaultModel,
		language:   "ko",
		baseURL:    defaultBaseURL,
		location:   time.Local,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeDay produces the day's AM and PM notes. A period with no
// activity gets the language-specific placeholder without any model
// call; a failed model call degrades to the same placeholder. The
// returned summary always carries exactly one AM and one PM note.
func (s *Summarizer) SummarizeDay(ctx context.Context, day model.DailyWorkData) (model.DailySummary, error) {
	am, pm := splitByPeriod(day, s.location)
	placeholder := PlaceholderNotes(s.language)

	summary := model.DailySummary{
		Date:    day.Date,
		AMNotes: placeholder,
		PMNotes: placeholder,
		RawAM:   am,
		RawPM:   pm,
	}

	if len(am.Commits) > 0 || len(am.Messages) > 0 {
		summary.AMNotes = s.summarizePeriod(ctx, "am", am, placeholder)
	}
	if len(pm.Commits) > 0 || len(pm.Messages) > 0 {
		summary.PMNotes = s.summarizePeriod(ctx, "pm", pm, placeholder)
	}

	return summary, nil
}

func (s *Summarizer) summarizePeriod(ctx context.Context, period string, activity model.PeriodActivity, placeholder string) string {
	prompt := BuildUserPrompt(period, activity.Commits, activity.Messages, s.language)

	notes, err := s.complete(ctx, SystemPrompt(s.language), prompt)
	if err != nil {
		slog.Warn("summarization call failed, using placeholder", "period", period, "error", err)
		return placeholder
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		return placeholder
	}
	return notes
}

// splitByPeriod assigns each activity record to AM (before 12:00 local)
// or PM by its own timestamp. Membership is derived, never stored.
func splitByPeriod(day model.DailyWorkData, loc *time.Location) (am, pm model.PeriodActivity) {
	for _, c := range day.Commits {
		if c.Timestamp.In(loc).Hour() < 12 {
			am.Commits = append(am.Commits, c)
		} else {
			pm.Commits = append(pm.Commits, c)
		}
	}
	for _, m := range day.Messages {
		if m.Timestamp.In(loc).Hour() < 12 {
			am.Messages = append(am.Messages, m)
		} else {
			pm.Messages = append(pm.Messages, m)
		}
	}
	return am, pm
}

func (s *Summarizer) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := s.baseURL + "/api/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// OpenRouter API types

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
