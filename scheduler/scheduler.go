// Package scheduler triggers one pipeline run per day at a configured
// local time, guarding against duplicate and overlapping runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"timesheet-automation/model"
	"timesheet-automation/progress"
)

var timeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// RunFunc executes one pipeline run for the week containing the fire
// date, forwarding progress to cb.
type RunFunc func(ctx context.Context, weekStart string, cb progress.Callback) error

// Config controls when the scheduler fires.
type Config struct {
	Enabled      bool
	Time         string // HH:MM local
	SkipWeekends bool
}

// Status is what status listeners receive.
type Status struct {
	Enabled bool
	Running bool
	NextRun time.Time // zero when disabled
}

// StatusListener receives scheduler status changes.
type StatusListener func(Status)

// Scheduler owns the timer, the run-in-progress flag and the listener
// lists. One scheduler exists per process; it serializes runs.
type Scheduler struct {
	mu                sync.Mutex
	cfg               Config
	loc               *time.Location
	run               RunFunc
	schedule          cron.Schedule
	stopCh            chan struct{}
	running           bool
	lastRunDate       string
	statusListeners   []StatusListener
	progressListeners []progress.Callback
	now               func() time.Time
}

// New creates a scheduler. The configured time must be HH:MM.
func New(cfg Config, loc *time.Location, run RunFunc) (*Scheduler, error) {
	schedule, err := parseSchedule(cfg)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cfg:      cfg,
		loc:      loc,
		run:      run,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

func parseSchedule(cfg Config) (cron.Schedule, error) {
	m := timeRegex.FindStringSubmatch(cfg.Time)
	if len(m) != 3 {
		return nil, fmt.Errorf("invalid schedule time: %q (expected HH:MM)", cfg.Time)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	if cfg.SkipWeekends {
		spec = fmt.Sprintf("%d %d * * 1-5", minute, hour)
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec: %w", err)
	}
	return schedule, nil
}

// Start begins the minute poll. Starting a started scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	go s.loop(stopCh)
	s.notifyStatus()
	slog.Info("scheduler started", "time", s.cfg.Time, "skip_weekends", s.cfg.SkipWeekends)
}

// Stop halts the poll. An in-flight run is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.mu.Unlock()

	s.notifyStatus()
	slog.Info("scheduler stopped")
}

// Restart applies a new configuration, tearing down and recreating the
// timer.
func (s *Scheduler) Restart(cfg Config) error {
	schedule, err := parseSchedule(cfg)
	if err != nil {
		return err
	}

	s.Stop()

	s.mu.Lock()
	s.cfg = cfg
	s.schedule = schedule
	s.mu.Unlock()

	if cfg.Enabled {
		s.Start()
	} else {
		s.notifyStatus()
	}
	return nil
}

// Running reports whether a run is currently in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next matching fire time strictly after now. This
// is for display only; it does not drive firing. The zero time means
// the scheduler is disabled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled {
		return time.Time{}
	}
	return s.schedule.Next(s.now().In(s.loc))
}

// OnStatus subscribes to status changes.
func (s *Scheduler) OnStatus(l StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusListeners = append(s.statusListeners, l)
}

// OnProgress subscribes to progress snapshots forwarded from runs the
// scheduler triggers.
func (s *Scheduler) OnProgress(cb progress.Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressListeners = append(s.progressListeners, cb)
}

func (s *Scheduler) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(s.now().In(s.loc))
		}
	}
}

// tick fires at most one run for the given instant.
func (s *Scheduler) tick(now time.Time) {
	if !s.shouldFire(now) {
		return
	}
	s.fire(now)
}

// shouldFire applies the guards and, when all pass, claims the run slot
// for today.
func (s *Scheduler) shouldFire(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.running {
		return false
	}
	if s.cfg.SkipWeekends {
		wd := now.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if now.Format("15:04") != s.cfg.Time {
		return false
	}
	today := now.Format("2006-01-02")
	if s.lastRunDate == today {
		return false
	}

	s.lastRunDate = today
	s.running = true
	return true
}

func (s *Scheduler) fire(now time.Time) {
	s.notifyStatus()

	weekStart := model.MondayOf(now)
	slog.Info("scheduled run firing", "week_start", weekStart)

	err := s.run(context.Background(), weekStart, s.forwardProgress)
	if err != nil {
		slog.Error("scheduled run failed", "week_start", weekStart, "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.notifyStatus()
}

func (s *Scheduler) forwardProgress(snap progress.Snapshot) {
	s.mu.Lock()
	listeners := make([]progress.Callback, len(s.progressListeners))
	copy(listeners, s.progressListeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Scheduler) notifyStatus() {
	s.mu.Lock()
	status := Status{Enabled: s.cfg.Enabled, Running: s.running}
	if s.cfg.Enabled {
		status.NextRun = s.schedule.Next(s.now().In(s.loc))
	}
	listeners := make([]StatusListener, len(s.statusListeners))
	copy(listeners, s.statusListeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(status)
	}
}
