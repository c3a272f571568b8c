package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"timesheet-automation/automation"
	"timesheet-automation/browser"
	"timesheet-automation/config"
	"timesheet-automation/github"
	"timesheet-automation/model"
	"timesheet-automation/pipeline"
	"timesheet-automation/progress"
	"timesheet-automation/scheduler"
	"timesheet-automation/slack"
	"timesheet-automation/storage"
	"timesheet-automation/summarizer"
)

var (
	flagWeek     string
	flagUseSaved bool
)

var rootCmd = &cobra.Command{
	Use:   "timesheet-automation",
	Short: "Fills weekly timesheets from GitHub and Slack activity",
	Long: `timesheet-automation collects a week of commits and chat messages,
summarizes them into AM/PM work notes with an LLM, and fills the notes
into the Remote time-tracking UI through a real browser session.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, summarize and fill one week",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.runWeek(cmd.Context(), flagWeek, flagUseSaved)
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate and print a week's summary without touching the timesheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.previewWeek(cmd.Context(), flagWeek)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run as a daemon, filling the timesheet on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.runDaemon()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs and their outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()
		return app.printHistory(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&flagWeek, "week", "", "Week start date (YYYY-MM-DD Monday, default: current week)")
	runCmd.Flags().BoolVar(&flagUseSaved, "use-saved", false, "Fill from the saved summary instead of regenerating")
	previewCmd.Flags().StringVar(&flagWeek, "week", "", "Week start date (YYYY-MM-DD Monday, default: current week)")
	rootCmd.AddCommand(runCmd, previewCmd, scheduleCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired components shared by all commands.
type app struct {
	cfg  *config.Config
	loc  *time.Location
	db   *storage.DB
	pipe *pipeline.Pipeline
}

func newApp() (*app, error) {
	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	setupLogging(cfg.LogLevel)
	slog.Info("config loaded", "path", configPath)

	loc, err := time.LoadLocation(cfg.Remote.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	repos := make([]github.Repo, 0, len(cfg.GitHub.Repos))
	for _, r := range cfg.GitHub.Repos {
		repos = append(repos, github.Repo{Owner: r.Owner, Name: r.Name})
	}
	commits := github.NewClient(cfg.GitHub.AccessToken, cfg.GitHub.Username, repos)
	messages := slack.NewClient(cfg.Slack.UserToken, cfg.Slack.UserID)

	daySummarizer := summarizer.NewSummarizer(
		cfg.AI.APIKey,
		summarizer.WithModel(cfg.AI.Model),
		summarizer.WithLanguage(cfg.AI.Language),
		summarizer.WithLocation(loc),
	)

	newDriver := func() (browser.Driver, error) {
		return browser.NewPlaywrightDriver(cfg.Browser.Headless, cfg.Browser.SlowMo)
	}
	engine := automation.NewEngine(
		newDriver,
		browser.Credentials{Email: cfg.Remote.Email, Password: cfg.Remote.Password},
		cfg.Remote.StatePath,
	)

	pipe := pipeline.New(commits, messages, daySummarizer, engine,
		pipeline.WithPlaceholder(summarizer.PlaceholderNotes(cfg.AI.Language)))

	return &app{cfg: cfg, loc: loc, db: db, pipe: pipe}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

func (a *app) weekStart(week string) (string, error) {
	if week == "" {
		return model.MondayOf(time.Now().In(a.loc)), nil
	}
	t, err := model.ParseDate(week)
	if err != nil {
		return "", fmt.Errorf("invalid week start %q: %w", week, err)
	}
	if t.Weekday() != time.Monday {
		return "", fmt.Errorf("week start %q is not a Monday", week)
	}
	return week, nil
}

// recorder mirrors progress snapshots into the run history and prints
// new log lines as they appear.
func (a *app) recorder(ctx context.Context, runID string) progress.Callback {
	printed := 0
	lastStatus := progress.Status("")
	return func(snap progress.Snapshot) {
		if snap.Status != lastStatus {
			lastStatus = snap.Status
			if err := a.db.UpdateRunStatus(ctx, runID, snap.Status); err != nil {
				slog.Warn("failed to update run status", "error", err)
			}
		}
		for ; printed < len(snap.Logs); printed++ {
			entry := snap.Logs[printed]
			fmt.Printf("[%s] %s\n", entry.Level, entry.Message)
			if err := a.db.AppendLog(ctx, runID, entry); err != nil {
				slog.Warn("failed to persist run log", "error", err)
			}
		}
	}
}

func (a *app) runWeek(ctx context.Context, week string, useSaved bool) error {
	weekStart, err := a.weekStart(week)
	if err != nil {
		return err
	}

	runID, err := a.db.CreateRun(ctx, weekStart)
	if err != nil {
		return err
	}
	cb := a.recorder(ctx, runID)

	var summary *model.WeeklySummary
	var runErr error
	if useSaved {
		saved, err := a.db.GetSummary(ctx, weekStart)
		if errors.Is(err, storage.ErrNotFound) {
			runErr = fmt.Errorf("no saved summary for week %s, run preview first", weekStart)
		} else if err != nil {
			runErr = err
		} else {
			summary = &saved.Summary
			runErr = a.pipe.Automate(ctx, summary, cb)
		}
	} else {
		summary, runErr = a.pipe.Run(ctx, weekStart, cb)
		if runErr == nil {
			if err := a.db.SaveSummary(ctx, *summary, false); err != nil {
				slog.Warn("failed to save summary", "error", err)
			}
		}
	}

	status := progress.StatusDone
	if runErr != nil {
		status = progress.StatusError
	}
	if err := a.db.FinishRun(ctx, runID, status, runErr); err != nil {
		slog.Warn("failed to finish run record", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("week %s filled\n", weekStart)
	return nil
}

func (a *app) previewWeek(ctx context.Context, week string) error {
	weekStart, err := a.weekStart(week)
	if err != nil {
		return err
	}

	cb := func(snap progress.Snapshot) {}
	data, err := a.pipe.CollectWeek(ctx, weekStart, cb)
	if err != nil {
		return err
	}
	summary, err := a.pipe.Summarize(ctx, data, cb)
	if err != nil {
		return err
	}

	if err := a.db.SaveSummary(ctx, *summary, false); err != nil {
		slog.Warn("failed to save summary", "error", err)
	}

	fmt.Printf("Week %s to %s\n", summary.WeekStart, summary.WeekEnd)
	for _, day := range summary.Days {
		fmt.Printf("\n%s (%s)\n", day.Date, model.DayName(day.Date))
		fmt.Printf("  AM: %s\n", day.AMNotes)
		fmt.Printf("  PM: %s\n", day.PMNotes)
	}
	fmt.Printf("\nsaved; edit with SQL or rerun, then: timesheet-automation run --use-saved --week %s\n", weekStart)
	return nil
}

func (a *app) runDaemon() error {
	sched, err := scheduler.New(
		scheduler.Config{
			Enabled:      a.cfg.Scheduler.Enabled,
			Time:         a.cfg.Scheduler.Time,
			SkipWeekends: a.cfg.Scheduler.SkipWeekends,
		},
		a.loc,
		func(ctx context.Context, weekStart string, cb progress.Callback) error {
			runID, err := a.db.CreateRun(ctx, weekStart)
			if err != nil {
				return err
			}
			record := a.recorder(ctx, runID)
			summary, runErr := a.pipe.Run(ctx, weekStart, func(snap progress.Snapshot) {
				record(snap)
				cb(snap)
			})
			status := progress.StatusDone
			if runErr != nil {
				status = progress.StatusError
			} else if err := a.db.SaveSummary(ctx, *summary, false); err != nil {
				slog.Warn("failed to save summary", "error", err)
			}
			if err := a.db.FinishRun(ctx, runID, status, runErr); err != nil {
				slog.Warn("failed to finish run record", "error", err)
			}
			return runErr
		},
	)
	if err != nil {
		return err
	}

	if !a.cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled in config")
	}

	sched.OnStatus(func(st scheduler.Status) {
		slog.Info("scheduler status", "running", st.Running, "next_run", st.NextRun)
	})

	sched.Start()
	defer sched.Stop()
	slog.Info("daemon started", "next_run", sched.NextRun())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())
	return nil
}

func (a *app) printHistory(ctx context.Context) error {
	runs, err := a.db.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs yet")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  week %s  %s  started %s",
			run.ID[:8], run.WeekStart, run.Status, run.StartedAt.Format("2006-01-02 15:04"))
		if run.Error != "" {
			line += "  error: " + run.Error
		}
		fmt.Println(line)
	}
	return nil
}
