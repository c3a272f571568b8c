package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"timesheet-automation/model"
	"timesheet-automation/progress"
)

// Mocks

type mockCommits struct {
	byDate map[string][]model.Commit
	err    error
	calls  []string
}

func (m *mockCommits) ListCommits(_ context.Context, date string) ([]model.Commit, error) {
	m.calls = append(m.calls, date)
	if m.err != nil {
		return nil, m.err
	}
	return m.byDate[date], nil
}

type mockMessages struct {
	byDate map[string][]model.Message
	err    error
}

func (m *mockMessages) ListMessages(_ context.Context, date string) ([]model.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byDate[date], nil
}

type mockSummarizer struct {
	err   error
	calls []string
}

func (m *mockSummarizer) SummarizeDay(_ context.Context, day model.DailyWorkData) (model.DailySummary, error) {
	m.calls = append(m.calls, day.Date)
	if m.err != nil {
		return model.DailySummary{}, m.err
	}
	return model.DailySummary{Date: day.Date, AMNotes: "AM for " + day.Date, PMNotes: "PM for " + day.Date}, nil
}

type mockAutomator struct {
	err  error
	runs []*model.WeeklySummary
}

func (m *mockAutomator) Run(_ context.Context, summary *model.WeeklySummary, cb progress.Callback) error {
	m.runs = append(m.runs, summary)
	if cb != nil {
		cb(progress.Snapshot{Status: progress.StatusAutomating, TotalDays: 5})
	}
	return m.err
}

func newTestPipeline() (*Pipeline, *mockCommits, *mockMessages, *mockSummarizer, *mockAutomator) {
	commits := &mockCommits{byDate: map[string][]model.Commit{}}
	messages := &mockMessages{byDate: map[string][]model.Message{}}
	summarizer := &mockSummarizer{}
	automator := &mockAutomator{}
	return New(commits, messages, summarizer, automator), commits, messages, summarizer, automator
}

func TestCollectWeekBuildsFiveWeekdays(t *testing.T) {
	p, commits, messages, _, _ := newTestPipeline()
	commits.byDate["2024-06-03"] = []model.Commit{{Hash: "abc", Message: "fix", Timestamp: time.Now()}}
	messages.byDate["2024-06-05"] = []model.Message{{Text: "hello", Timestamp: time.Now()}}

	data, err := p.CollectWeek(context.Background(), "2024-06-03", nil)
	if err != nil {
		t.Fatalf("CollectWeek failed: %v", err)
	}

	if data.WeekStart != "2024-06-03" || data.WeekEnd != "2024-06-09" {
		t.Errorf("range = %s..%s", data.WeekStart, data.WeekEnd)
	}
	if len(data.Days) != 5 {
		t.Fatalf("got %d days, want 5", len(data.Days))
	}
	if data.Days[0].DayOfWeek != "Mon" || data.Days[4].DayOfWeek != "Fri" {
		t.Errorf("day labels wrong: %s..%s", data.Days[0].DayOfWeek, data.Days[4].DayOfWeek)
	}
	if len(data.Days[0].Commits) != 1 {
		t.Errorf("Monday commits = %d, want 1", len(data.Days[0].Commits))
	}
	if len(data.Days[2].Messages) != 1 {
		t.Errorf("Wednesday messages = %d, want 1", len(data.Days[2].Messages))
	}
}

func TestCollectWeekAbsorbsSourceFailures(t *testing.T) {
	p, commits, _, _, _ := newTestPipeline()
	commits.err = errors.New("rate limited")

	var snaps []progress.Snapshot
	data, err := p.CollectWeek(context.Background(), "2024-06-03", func(s progress.Snapshot) { snaps = append(snaps, s) })
	if err != nil {
		t.Fatalf("source failure must not abort collection: %v", err)
	}
	if len(data.Days) != 5 {
		t.Fatalf("got %d days, want 5", len(data.Days))
	}

	warned := false
	for _, e := range snaps[len(snaps)-1].Logs {
		if e.Level == progress.LevelWarn {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning for the failed source")
	}
}

func TestCollectWeekInvalidStart(t *testing.T) {
	p, _, _, _, _ := newTestPipeline()
	if _, err := p.CollectWeek(context.Background(), "bad-date", nil); err == nil {
		t.Fatal("expected error for invalid week start")
	}
}

func TestSummarizeOnePerDay(t *testing.T) {
	p, _, _, summarizer, _ := newTestPipeline()
	data, err := p.CollectWeek(context.Background(), "2024-06-03", nil)
	if err != nil {
		t.Fatalf("CollectWeek failed: %v", err)
	}

	summary, err := p.Summarize(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(summary.Days) != 5 {
		t.Fatalf("got %d summaries, want 5", len(summary.Days))
	}
	if len(summarizer.calls) != 5 {
		t.Errorf("summarizer invoked %d times, want 5", len(summarizer.calls))
	}
	if summary.Days[0].AMNotes != "AM for 2024-06-03" {
		t.Errorf("AM notes = %q", summary.Days[0].AMNotes)
	}
}

func TestSummarizeFailureUsesPlaceholder(t *testing.T) {
	p, _, _, summarizer, _ := newTestPipeline()
	summarizer.err = errors.New("model unavailable")

	data, _ := p.CollectWeek(context.Background(), "2024-06-03", nil)
	summary, err := p.Summarize(context.Background(), data, nil)
	if err != nil {
		t.Fatalf("summarizer failure must not abort the stage: %v", err)
	}

	for _, day := range summary.Days {
		if day.AMNotes != "General work" || day.PMNotes != "General work" {
			t.Errorf("%s notes = %q/%q, want placeholders", day.Date, day.AMNotes, day.PMNotes)
		}
	}
}

func TestRunChainsAllStages(t *testing.T) {
	p, _, _, _, automator := newTestPipeline()

	var statuses []progress.Status
	summary, err := p.Run(context.Background(), "2024-06-03", func(s progress.Snapshot) {
		if len(statuses) == 0 || statuses[len(statuses)-1] != s.Status {
			statuses = append(statuses, s.Status)
		}
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(automator.runs) != 1 {
		t.Fatalf("automator ran %d times, want 1", len(automator.runs))
	}
	if automator.runs[0] != summary {
		t.Error("automator did not receive the generated summary")
	}

	want := []progress.Status{progress.StatusCollecting, progress.StatusSummarizing, progress.StatusAutomating}
	if len(statuses) != len(want) {
		t.Fatalf("status transitions = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, statuses[i], want[i])
		}
	}
}

func TestRunShortCircuitsOnAutomationFailure(t *testing.T) {
	p, _, _, _, automator := newTestPipeline()
	automator.err = errors.New("resubmit: click intercepted")

	if _, err := p.Run(context.Background(), "2024-06-03", nil); err == nil {
		t.Fatal("expected automation failure to surface")
	}
}

func TestRunShortCircuitsOnCollectionFailure(t *testing.T) {
	p, _, _, _, automator := newTestPipeline()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx, "2024-06-03", nil); err == nil {
		t.Fatal("expected cancelled collection to surface")
	}
	if len(automator.runs) != 0 {
		t.Error("later stages must not run after an earlier failure")
	}
}
