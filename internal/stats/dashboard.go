package stats

import (
	"time"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/spaced_repetition"
	"github.com/example/revtrack/pkg/models"
)

// SubjectSummary is a subject with its completion percentage
type SubjectSummary struct {
	ID      int64
	Name    string
	Percent int
	Topics  []models.Topic
}

// Dashboard is the view model consumed by the front-ends
type Dashboard struct {
	Today             string
	Due               []spaced_repetition.DueTopic
	Subjects          []SubjectSummary
	Streak            int
	Activity          Activity
	CompletionPercent int
	// ActiveDays is the number of days with at least one revision
	ActiveDays int
}

// BuildDashboard computes every aggregate shown on the dashboard
func BuildDashboard(subjects []models.Subject, entries []models.StatEntry, today time.Time) Dashboard {
	summaries := make([]SubjectSummary, 0, len(subjects))
	for _, s := range subjects {
		summaries = append(summaries, SubjectSummary{
			ID:      s.ID,
			Name:    s.Name,
			Percent: SubjectPercent(s),
			Topics:  s.Topics,
		})
	}

	return Dashboard{
		Today:             dates.Format(today),
		Due:               spaced_repetition.DueTopics(subjects, today),
		Subjects:          summaries,
		Streak:            CurrentStreak(entries, today),
		Activity:          WeeklyActivity(entries, today),
		CompletionPercent: CompletionPercent(subjects),
		ActiveDays:        len(entries),
	}
}
