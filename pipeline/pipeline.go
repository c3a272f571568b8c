// Package pipeline sequences data collection, summarization and
// timesheet automation as one resumable workflow with uniform progress
// reporting.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"timesheet-automation/model"
	"timesheet-automation/progress"
)

// CommitSource lists a worker's commits for one calendar day. Upstream
// failures are absorbed: implementations return partial or empty
// results rather than propagating rate limits.
type CommitSource interface {
	ListCommits(ctx context.Context, date string) ([]model.Commit, error)
}

// MessageSource lists a worker's chat messages for one calendar day,
// with the same failure contract as CommitSource.
type MessageSource interface {
	ListMessages(ctx context.Context, date string) ([]model.Message, error)
}

// DaySummarizer turns one day's activity into AM/PM notes.
type DaySummarizer interface {
	SummarizeDay(ctx context.Context, day model.DailyWorkData) (model.DailySummary, error)
}

// Automator realizes a weekly summary in the remote timesheet UI.
type Automator interface {
	Run(ctx context.Context, summary *model.WeeklySummary, cb progress.Callback) error
}

// Pipeline wires the three stages together. Each stage emits its own
// status with a stage-local log; the full Run chains them and stops at
// the first failure.
type Pipeline struct {
	commits     CommitSource
	messages    MessageSource
	summarizer  DaySummarizer
	automator   Automator
	placeholder string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPlaceholder sets the note text used when a day cannot be
// summarized at all.
func WithPlaceholder(text string) Option {
	return func(p *Pipeline) {
		p.placeholder = text
	}
}

// New creates a pipeline over the given collaborators.
func New(commits CommitSource, messages MessageSource, summarizer DaySummarizer, automator Automator, opts ...Option) *Pipeline {
	p := &Pipeline{
		commits:     commits,
		messages:    messages,
		summarizer:  summarizer,
		automator:   automator,
		placeholder: "General work",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CollectWeek gathers activity for the five weekdays starting at the
// given Monday. The two sources for a day are fetched concurrently;
// days run sequentially.
func (p *Pipeline) CollectWeek(ctx context.Context, weekStart string, cb progress.Callback) (*model.WeeklyWorkData, error) {
	dates, err := model.WeekDates(weekStart)
	if err != nil {
		return nil, fmt.Errorf("week start: %w", err)
	}

	tr := progress.NewTracker(progress.StatusCollecting, len(dates), cb)
	tr.Log(progress.LevelInfo, "collecting data for week "+weekStart)

	days := make([]model.DailyWorkData, 0, len(dates))
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tr.SetCurrentDay(date)
		tr.Log(progress.LevelInfo, "collecting data for "+date)

		var (
			commits     []model.Commit
			messages    []model.Message
			commitsErr  error
			messagesErr error
			wg          sync.WaitGroup
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			commits, commitsErr = p.commits.ListCommits(ctx, date)
		}()
		go func() {
			defer wg.Done()
			messages, messagesErr = p.messages.ListMessages(ctx, date)
		}()
		wg.Wait()

		if commitsErr != nil {
			tr.Log(progress.LevelWarn, fmt.Sprintf("commit collection for %s failed: %v", date, commitsErr))
			commits = nil
		}
		if messagesErr != nil {
			tr.Log(progress.LevelWarn, fmt.Sprintf("message collection for %s failed: %v", date, messagesErr))
			messages = nil
		}

		days = append(days, model.DailyWorkData{
			Date:      date,
			DayOfWeek: model.DayName(date),
			Commits:   commits,
			Messages:  messages,
		})

		tr.Log(progress.LevelInfo, fmt.Sprintf("%s: %d commits, %d messages", date, len(commits), len(messages)))
		tr.SetCompleted(i + 1)
	}

	weekEnd, err := model.WeekEnd(weekStart)
	if err != nil {
		return nil, err
	}

	return &model.WeeklyWorkData{WeekStart: weekStart, WeekEnd: weekEnd, Days: days}, nil
}

// Summarize produces one DailySummary per collected day. Summarizer
// failures degrade to placeholder notes for the day; they never abort
// the stage.
func (p *Pipeline) Summarize(ctx context.Context, data *model.WeeklyWorkData, cb progress.Callback) (*model.WeeklySummary, error) {
	tr := progress.NewTracker(progress.StatusSummarizing, len(data.Days), cb)
	tr.Log(progress.LevelInfo, "generating summaries")

	summaries := make([]model.DailySummary, 0, len(data.Days))
	for i, day := range data.Days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tr.SetCurrentDay(day.Date)
		tr.Log(progress.LevelInfo, "summarizing "+day.Date)

		summary, err := p.summarizer.SummarizeDay(ctx, day)
		if err != nil {
			tr.Log(progress.LevelWarn, fmt.Sprintf("summarization for %s failed: %v", day.Date, err))
			summary = model.DailySummary{Date: day.Date, AMNotes: p.placeholder, PMNotes: p.placeholder}
		}
		summaries = append(summaries, summary)

		tr.Log(progress.LevelSuccess, fmt.Sprintf("%s: AM=%q PM=%q",
			day.Date, truncate(summary.AMNotes, 50), truncate(summary.PMNotes, 50)))
		tr.SetCompleted(i + 1)
	}

	return &model.WeeklySummary{
		WeekStart: data.WeekStart,
		WeekEnd:   data.WeekEnd,
		Days:      summaries,
	}, nil
}

// Automate delegates to the automation engine.
func (p *Pipeline) Automate(ctx context.Context, summary *model.WeeklySummary, cb progress.Callback) error {
	return p.automator.Run(ctx, summary, cb)
}

// Run executes the full pipeline for one week and returns the summary
// that was automated. Each stage only runs if the previous succeeded.
func (p *Pipeline) Run(ctx context.Context, weekStart string, cb progress.Callback) (*model.WeeklySummary, error) {
	data, err := p.CollectWeek(ctx, weekStart, cb)
	if err != nil {
		return nil, fmt.Errorf("collect week: %w", err)
	}

	summary, err := p.Summarize(ctx, data, cb)
	if err != nil {
		return nil, fmt.Errorf("summarize week: %w", err)
	}

	if err := p.Automate(ctx, summary, cb); err != nil {
		return summary, fmt.Errorf("automate timesheet: %w", err)
	}

	return summary, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
