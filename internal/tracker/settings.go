package tracker

import (
	"context"
	"errors"

	"github.com/example/revtrack/pkg/models"
)

// Pomodoro returns the focus timer settings, persisting the defaults on first use
func (s *Service) Pomodoro(ctx context.Context) (models.PomodoroSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p models.PomodoroSettings
	err := s.settings.Get(ctx, models.PomodoroSettingsKey, &p)
	if errors.Is(err, models.ErrNotFound) {
		p = models.DefaultPomodoroSettings()
		if err := s.settings.Save(ctx, models.PomodoroSettingsKey, p); err != nil {
			return models.PomodoroSettings{}, err
		}
		s.log.Info("default pomodoro settings created", "work", p.WorkMinutes, "break", p.BreakMinutes)
		return p, nil
	}
	if err != nil {
		return models.PomodoroSettings{}, err
	}
	return p, nil
}

// SavePomodoro stores new focus timer durations in minutes
func (s *Service) SavePomodoro(ctx context.Context, workMinutes, breakMinutes int) (models.PomodoroSettings, error) {
	p := models.PomodoroSettings{WorkMinutes: workMinutes, BreakMinutes: breakMinutes}
	if err := p.Validate(); err != nil {
		return models.PomodoroSettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.Save(ctx, models.PomodoroSettingsKey, p); err != nil {
		return models.PomodoroSettings{}, err
	}
	s.log.Info("pomodoro settings saved", "work", workMinutes, "break", breakMinutes)
	return p, nil
}

// Reminders returns the reminder settings, or the defaults when none are stored
func (s *Service) Reminders(ctx context.Context) (models.ReminderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r models.ReminderSettings
	err := s.settings.Get(ctx, models.ReminderSettingsKey, &r)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultReminderSettings(), nil
	}
	if err != nil {
		return models.ReminderSettings{}, err
	}
	return r, nil
}

// SaveReminders stores the reminder settings
func (s *Service) SaveReminders(ctx context.Context, enabled bool, hour int) (models.ReminderSettings, error) {
	r := models.ReminderSettings{Enabled: enabled, Hour: hour}
	if err := r.Validate(); err != nil {
		return models.ReminderSettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.Save(ctx, models.ReminderSettingsKey, r); err != nil {
		return models.ReminderSettings{}, err
	}
	s.log.Info("reminder settings saved", "enabled", enabled, "hour", hour)
	return r, nil
}
