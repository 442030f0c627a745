// Package stats derives the dashboard aggregates from the day-keyed
// completion log and the subject records.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/pkg/models"
)

// WeekDays is the length of the activity window
const WeekDays = 7

// Activity is the per-day activity indicator for the last WeekDays days,
// oldest first. Values are 1 for a day with a StatEntry and 0 otherwise;
// the log cannot tell how many revisions happened on a day.
type Activity struct {
	Labels []string
	Values []int
}

// CurrentStreak counts consecutive days with an entry, ending today or yesterday.
// A most recent entry older than yesterday breaks the streak.
func CurrentStreak(entries []models.StatEntry, today time.Time) int {
	if len(entries) == 0 {
		return 0
	}

	// ISO dates are zero padded, so string order is calendar order
	days := make([]string, 0, len(entries))
	for _, e := range entries {
		days = append(days, e.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	if days[0] != dates.Format(today) && days[0] != dates.Yesterday(today) {
		return 0
	}

	streak := 1
	cursor := days[0]
	for _, day := range days[1:] {
		if day == cursor {
			continue
		}
		expected, err := dates.PreviousDay(cursor)
		if err != nil || day != expected {
			break
		}
		streak++
		cursor = day
	}
	return streak
}

// WeeklyActivity returns the activity for the seven days ending today.
// Labels are "Today", "Yest." and short weekday names for older days.
func WeeklyActivity(entries []models.StatEntry, today time.Time) Activity {
	active := make(map[string]bool, len(entries))
	for _, e := range entries {
		active[e.Date] = true
	}

	day := dates.Midnight(today)
	activity := Activity{
		Labels: make([]string, WeekDays),
		Values: make([]int, WeekDays),
	}
	for offset := WeekDays - 1; offset >= 0; offset-- {
		d := dates.AddDays(day, -offset)
		i := WeekDays - 1 - offset

		switch offset {
		case 0:
			activity.Labels[i] = "Today"
		case 1:
			activity.Labels[i] = "Yest."
		default:
			activity.Labels[i] = dates.ShortWeekday(d)
		}
		if active[dates.Format(d)] {
			activity.Values[i] = 1
		}
	}
	return activity
}

// CompletionPercent is the rounded share of completed topics across all subjects.
// It is 0 when there are no topics.
func CompletionPercent(subjects []models.Subject) int {
	total, completed := 0, 0
	for i := range subjects {
		total += len(subjects[i].Topics)
		completed += subjects[i].CompletedCount()
	}
	return percent(completed, total)
}

// SubjectPercent is CompletionPercent for a single subject
func SubjectPercent(subject models.Subject) int {
	return percent(subject.CompletedCount(), len(subject.Topics))
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
