package spaced_repetition

import (
	"time"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/pkg/models"
)

// DefaultIntervals are the review intervals in calendar days, indexed by revision level
var DefaultIntervals = []int{1, 3, 7, 14, 30, 60}

// Schedule maps a topic's revision level to its next review date
type Schedule struct {
	// Intervals in days; levels past the end reuse the last entry
	Intervals []int
}

// NewSchedule creates a schedule with the default interval table
func NewSchedule() *Schedule {
	intervals := make([]int, len(DefaultIntervals))
	copy(intervals, DefaultIntervals)
	return &Schedule{Intervals: intervals}
}

// Interval returns the number of days to wait after a revision at the given level.
// The level is clamped into the table, so the longest interval repeats forever.
func (s *Schedule) Interval(level int) int {
	idx := level
	if idx > len(s.Intervals)-1 {
		idx = len(s.Intervals) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return s.Intervals[idx]
}

// NextRevisionDate returns lastRevised advanced by the interval for level
func (s *Schedule) NextRevisionDate(lastRevised time.Time, level int) time.Time {
	return dates.AddDays(lastRevised, s.Interval(level))
}

// NextRevisionDateISO is NextRevisionDate over ISO date strings.
// The caller is expected to pass a valid date; a parse error is returned as is.
func (s *Schedule) NextRevisionDateISO(lastRevised string, level int) (string, error) {
	last, err := dates.Parse(lastRevised)
	if err != nil {
		return "", err
	}
	return dates.Format(s.NextRevisionDate(last, level)), nil
}

// NewTopic builds a level 0 topic last revised on the given ISO date
func (s *Schedule) NewTopic(id int64, name, lastRevised string) (models.Topic, error) {
	next, err := s.NextRevisionDateISO(lastRevised, 0)
	if err != nil {
		return models.Topic{}, err
	}
	return models.Topic{
		ID:               id,
		Name:             name,
		LastRevised:      lastRevised,
		RevisionLevel:    0,
		NextRevisionDate: next,
		IsComplete:       false,
	}, nil
}

// Revise records a completed revision of the topic on today.
// This is the only place the revision level advances.
func (s *Schedule) Revise(topic *models.Topic, today time.Time) {
	day := dates.Midnight(today)
	topic.LastRevised = dates.Format(day)
	topic.RevisionLevel++
	topic.NextRevisionDate = dates.Format(s.NextRevisionDate(day, topic.RevisionLevel))
	topic.IsComplete = true
}

// IsDue reports whether the topic's next revision is on or before today,
// compared by calendar day. A topic with an unreadable date is never due.
func IsDue(topic models.Topic, today time.Time) bool {
	if _, err := dates.Parse(topic.NextRevisionDate); err != nil {
		return false
	}
	return topic.NextRevisionDate <= dates.Format(today)
}

// DueTopic identifies a topic waiting for revision
type DueTopic struct {
	SubjectID        int64
	TopicID          int64
	SubjectName      string
	TopicName        string
	NextRevisionDate string
}

// DueTopics lists every due topic in subject order, then topic order
func DueTopics(subjects []models.Subject, today time.Time) []DueTopic {
	var due []DueTopic
	for _, subject := range subjects {
		for _, topic := range subject.Topics {
			if !IsDue(topic, today) {
				continue
			}
			due = append(due, DueTopic{
				SubjectID:        subject.ID,
				TopicID:          topic.ID,
				SubjectName:      subject.Name,
				TopicName:        topic.Name,
				NextRevisionDate: topic.NextRevisionDate,
			})
		}
	}
	return due
}
