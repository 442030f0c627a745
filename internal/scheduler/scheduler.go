package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/pkg/models"
)

// checkTimeout bounds a single reminder check
const checkTimeout = 30 * time.Second

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    ReminderSource
	notifier  Notifier
	log       *slog.Logger
	loc       *time.Location
	clock     func() time.Time

	mu       sync.Mutex
	lastSent string
	// retryOn is the day whose reminder could not be shown
	retryOn string
}

// Notifier shows notifications to the user
type Notifier interface {
	// RequestPermission asks the user to allow notifications
	RequestPermission(ctx context.Context) (bool, error)
	// Show displays a notification. Delivery is best effort.
	Show(ctx context.Context, title, body string) error
}

// ReminderSource provides the reminder settings and the due message
type ReminderSource interface {
	Reminders(ctx context.Context) (models.ReminderSettings, error)
	DueReminder(ctx context.Context) (count int, title, body string, err error)
}

// New creates a new scheduler instance running in loc
func New(source ReminderSource, notifier Notifier, loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		source:    source,
		notifier:  notifier,
		log:       log,
		loc:       loc,
		clock:     time.Now,
	}
}

func (s *Scheduler) now() time.Time {
	return s.clock().In(s.loc)
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// The reminder hour is a user setting, so check at the top of every
	// hour and compare against the stored value.
	if _, err := s.scheduler.Cron("0 * * * *").Do(s.checkHourly); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunNow checks for due revisions immediately, regardless of the hour
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.check(ctx, false)
}

func (s *Scheduler) checkHourly() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := s.check(ctx, true); err != nil {
		s.log.Error("reminder check failed", "error", err)
	}
}

// check notifies about due topics. With onSchedule set it only fires at
// the configured hour and at most once a day. A reminder that could not be
// shown is retried every hour for the rest of that day.
func (s *Scheduler) check(ctx context.Context, onSchedule bool) error {
	settings, err := s.source.Reminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !settings.Enabled {
		s.log.Debug("reminders disabled, skipping")
		return nil
	}

	now := s.now()
	today := dates.Format(now)
	if onSchedule {
		if now.Hour() != settings.Hour && s.retryDay() != today {
			return nil
		}
		if s.sentOn() == today {
			s.log.Debug("reminder already sent today", "date", today)
			return nil
		}
	}

	count, title, body, err := s.source.DueReminder(ctx)
	if err != nil {
		return fmt.Errorf("failed to count due topics: %w", err)
	}
	if count == 0 {
		s.log.Debug("nothing due", "date", today)
		s.markRetry("")
		return nil
	}

	// Delivery failures are logged, never surfaced
	if err := s.notifier.Show(ctx, title, body); err != nil {
		s.log.Warn("failed to show reminder, retrying next hour", "error", err)
		s.markRetry(today)
		return nil
	}
	s.markSent(today)
	s.log.Info("reminder sent", "due", count)
	return nil
}

func (s *Scheduler) sentOn() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSent
}

func (s *Scheduler) markSent(day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent = day
	s.retryOn = ""
}

func (s *Scheduler) retryDay() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryOn
}

func (s *Scheduler) markRetry(day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryOn = day
}
