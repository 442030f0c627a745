package models

import "fmt"

// Keys of the singleton records in the settings collection
const (
	PomodoroSettingsKey = "pomodoro"
	ReminderSettingsKey = "reminders"
)

// PomodoroSettings holds the focus timer durations
type PomodoroSettings struct {
	WorkMinutes  int `json:"work"`
	BreakMinutes int `json:"break"`
}

// DefaultPomodoroSettings returns the settings used on first run
func DefaultPomodoroSettings() PomodoroSettings {
	return PomodoroSettings{
		WorkMinutes:  25,
		BreakMinutes: 5,
	}
}

// Validate reports non-positive durations
func (p PomodoroSettings) Validate() error {
	var verr ValidationError
	if p.WorkMinutes <= 0 {
		verr.Errors = append(verr.Errors, FieldError{Field: "work", Message: "must be a positive number of minutes"})
	}
	if p.BreakMinutes <= 0 {
		verr.Errors = append(verr.Errors, FieldError{Field: "break", Message: "must be a positive number of minutes"})
	}
	if len(verr.Errors) > 0 {
		return &verr
	}
	return nil
}

// ReminderSettings controls the daily due-revision notification
type ReminderSettings struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"` // Hour of day for notifications (0-23)
}

// DefaultReminderSettings returns the settings used on first run
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Enabled: false,
		Hour:    9,
	}
}

// Validate reports an hour outside the day
func (r ReminderSettings) Validate() error {
	if r.Hour < 0 || r.Hour > 23 {
		return NewValidationError("hour", fmt.Sprintf("hour %d is outside 0-23", r.Hour))
	}
	return nil
}
