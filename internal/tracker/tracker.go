// Package tracker implements the user actions of the study tracker on top
// of the store, the revision schedule and the stats engine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/spaced_repetition"
	"github.com/example/revtrack/internal/stats"
	"github.com/example/revtrack/pkg/models"
)

// Prompts shown before destructive actions
const (
	deleteSubjectPrompt = "Are you sure you want to delete %q and all its topics?"
	deleteTopicPrompt   = "Are you sure you want to delete this topic?"
)

// Reminder message
const (
	ReminderTitle = "Revisions Due!"
	reminderBody  = "You have %d topic(s) to revise today."
)

// Service serialises every user action. Only one operation runs at a time.
type Service struct {
	mu       sync.Mutex
	subjects SubjectStore
	stats    StatsStore
	settings SettingsStore
	schedule *spaced_repetition.Schedule
	now      func() time.Time
	log      *slog.Logger
	lastID   int64
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithSchedule replaces the default interval table
func WithSchedule(schedule *spaced_repetition.Schedule) Option {
	return func(s *Service) { s.schedule = schedule }
}

// New creates a tracker over the given stores
func New(subjects SubjectStore, statsStore StatsStore, settings SettingsStore, opts ...Option) *Service {
	s := &Service{
		subjects: subjects,
		stats:    statsStore,
		settings: settings,
		schedule: spaced_repetition.NewSchedule(),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current time according to the service clock
func (s *Service) Today() time.Time {
	return s.now()
}

// nextID hands out strictly increasing millisecond timestamps
func (s *Service) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Subjects returns every subject with its topics
func (s *Service) Subjects(ctx context.Context) ([]models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects.GetAll(ctx)
}

// Subject returns a single subject
func (s *Service) Subject(ctx context.Context, id int64) (models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects.GetByID(ctx, id)
}

// AddSubject creates an empty subject
func (s *Service) AddSubject(ctx context.Context, name string) (models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Subject{}, models.NewValidationError("name", "subject name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subject := models.Subject{ID: s.nextID(), Name: name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return models.Subject{}, err
	}
	s.log.Info("subject added", "subject_id", subject.ID, "name", name)
	return subject, nil
}

// DeleteSubject removes a subject and all of its topics once the user confirms
func (s *Service) DeleteSubject(ctx context.Context, id int64, confirm Confirmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := ask(ctx, confirm, fmt.Sprintf(deleteSubjectPrompt, subject.Name)); err != nil {
		return err
	}
	if err := s.subjects.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("subject deleted", "subject_id", id, "topics", len(subject.Topics))
	return nil
}

// AddTopic appends a new topic to a subject. lastRevised must be an ISO date.
func (s *Service) AddTopic(ctx context.Context, subjectID int64, name, lastRevised string) (models.Topic, error) {
	name = strings.TrimSpace(name)
	lastRevised = strings.TrimSpace(lastRevised)

	var verr models.ValidationError
	if name == "" {
		verr.Errors = append(verr.Errors, models.FieldError{Field: "name", Message: "topic name is required"})
	}
	if lastRevised == "" {
		verr.Errors = append(verr.Errors, models.FieldError{Field: "lastRevised", Message: "date is required"})
	} else if _, err := dates.Parse(lastRevised); err != nil {
		verr.Errors = append(verr.Errors, models.FieldError{Field: "lastRevised", Message: "date must be YYYY-MM-DD"})
	}
	if len(verr.Errors) > 0 {
		return models.Topic{}, &verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return models.Topic{}, err
	}

	topic, err := s.schedule.NewTopic(s.nextID(), name, lastRevised)
	if err != nil {
		return models.Topic{}, err
	}
	topic.SubjectID = subjectID
	subject.Topics = append(subject.Topics, topic)

	if err := s.subjects.Save(ctx, subject); err != nil {
		return models.Topic{}, err
	}
	s.log.Info("topic added", "subject_id", subjectID, "topic_id", topic.ID, "next", topic.NextRevisionDate)
	return topic, nil
}

// SetTopicComplete flips the completion flag without touching the schedule
func (s *Service) SetTopicComplete(ctx context.Context, subjectID, topicID int64, complete bool) (models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateTopic(ctx, subjectID, topicID, func(t *models.Topic) {
		t.IsComplete = complete
	})
}

// ReviseTopic records a revision of the topic today and marks the day active
func (s *Service) ReviseTopic(ctx context.Context, subjectID, topicID int64) (models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now()
	topic, err := s.updateTopic(ctx, subjectID, topicID, func(t *models.Topic) {
		s.schedule.Revise(t, today)
	})
	if err != nil {
		return models.Topic{}, err
	}

	entry := models.StatEntry{Date: dates.Format(today)}
	if err := s.stats.Create(ctx, entry); err != nil {
		if !errors.Is(err, models.ErrAlreadyExists) {
			return topic, fmt.Errorf("failed to record activity: %w", err)
		}
		s.log.Debug("activity already recorded", "date", entry.Date)
	}

	s.log.Info("topic revised",
		"subject_id", subjectID,
		"topic_id", topicID,
		"level", topic.RevisionLevel,
		"next", topic.NextRevisionDate,
	)
	return topic, nil
}

// DeleteTopic removes a topic from its subject once the user confirms
func (s *Service) DeleteTopic(ctx context.Context, subjectID, topicID int64, confirm Confirmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}
	i := subject.TopicIndex(topicID)
	if i < 0 {
		return fmt.Errorf("topic %d: %w", topicID, models.ErrNotFound)
	}
	if err := ask(ctx, confirm, deleteTopicPrompt); err != nil {
		return err
	}

	subject.Topics = append(subject.Topics[:i:i], subject.Topics[i+1:]...)
	if err := s.subjects.Save(ctx, subject); err != nil {
		return err
	}
	s.log.Info("topic deleted", "subject_id", subjectID, "topic_id", topicID)
	return nil
}

// Dashboard computes the current view model
func (s *Service) Dashboard(ctx context.Context) (stats.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects, entries, err := s.load(ctx)
	if err != nil {
		return stats.Dashboard{}, err
	}
	return stats.BuildDashboard(subjects, entries, s.now()), nil
}

// DueTopics lists topics due today or earlier
func (s *Service) DueTopics(ctx context.Context) ([]spaced_repetition.DueTopic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return spaced_repetition.DueTopics(subjects, s.now()), nil
}

// DueReminder returns the number of due topics and the notification text.
// A zero count means nothing should be shown.
func (s *Service) DueReminder(ctx context.Context) (count int, title, body string, err error) {
	due, err := s.DueTopics(ctx)
	if err != nil {
		return 0, "", "", err
	}
	if len(due) == 0 {
		return 0, "", "", nil
	}
	return len(due), ReminderTitle, fmt.Sprintf(reminderBody, len(due)), nil
}

func (s *Service) load(ctx context.Context) ([]models.Subject, []models.StatEntry, error) {
	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.stats.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return subjects, entries, nil
}

func (s *Service) updateTopic(ctx context.Context, subjectID, topicID int64, fn func(*models.Topic)) (models.Topic, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return models.Topic{}, err
	}
	i := subject.TopicIndex(topicID)
	if i < 0 {
		return models.Topic{}, fmt.Errorf("topic %d: %w", topicID, models.ErrNotFound)
	}
	fn(&subject.Topics[i])
	if err := s.subjects.Save(ctx, subject); err != nil {
		return models.Topic{}, err
	}
	return subject.Topics[i], nil
}

func ask(ctx context.Context, confirm Confirmer, prompt string) error {
	if confirm == nil {
		return fmt.Errorf("no confirmation available: %w", models.ErrDeclined)
	}
	ok, err := confirm.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to confirm: %w", err)
	}
	if !ok {
		return models.ErrDeclined
	}
	return nil
}
