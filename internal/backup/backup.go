// Package backup exports and restores every collection of the store as a
// single JSON document.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/spaced_repetition"
	"github.com/example/revtrack/pkg/models"
)

// Version is the document format written by Export
const Version = 1

var errUnsupportedVersion = errors.New("unsupported backup version")

// Document is the on-disk backup format
type Document struct {
	Version    int                        `json:"version"`
	ExportedAt time.Time                  `json:"exportedAt"`
	Subjects   []models.Subject           `json:"subjects"`
	Settings   map[string]json.RawMessage `json:"settings"`
	Stats      []models.StatEntry         `json:"stats"`
}

// SubjectStore is the subject collection
type SubjectStore interface {
	GetAll(ctx context.Context) ([]models.Subject, error)
	Save(ctx context.Context, subject models.Subject) error
}

// StatsStore is the stats collection. Save must ignore dates already present.
type StatsStore interface {
	GetAll(ctx context.Context) ([]models.StatEntry, error)
	Save(ctx context.Context, entry models.StatEntry) error
}

// SettingsStore is the settings collection
type SettingsStore interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}

// Result counts the records written by Restore
type Result struct {
	Subjects int
	Topics   int
	Settings int
	Stats    int
}

// Service moves all collections between the store and backup files
type Service struct {
	subjects SubjectStore
	stats    StatsStore
	settings SettingsStore
	schedule *spaced_repetition.Schedule
	now      func() time.Time
}

// New creates a backup service
func New(subjects SubjectStore, stats StatsStore, settings SettingsStore) *Service {
	return &Service{
		subjects: subjects,
		stats:    stats,
		settings: settings,
		schedule: spaced_repetition.NewSchedule(),
		now:      time.Now,
	}
}

// Snapshot reads every collection
func (s *Service) Snapshot(ctx context.Context) (Document, error) {
	subjects, err := s.subjects.GetAll(ctx)
	if err != nil {
		return Document{}, err
	}
	entries, err := s.stats.GetAll(ctx)
	if err != nil {
		return Document{}, err
	}
	keys, err := s.settings.Keys(ctx)
	if err != nil {
		return Document{}, err
	}

	settings := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		var raw json.RawMessage
		if err := s.settings.Get(ctx, key, &raw); err != nil {
			return Document{}, err
		}
		settings[key] = raw
	}

	if subjects == nil {
		subjects = []models.Subject{}
	}
	if entries == nil {
		entries = []models.StatEntry{}
	}
	return Document{
		Version:    Version,
		ExportedAt: s.now().UTC().Truncate(time.Second),
		Subjects:   subjects,
		Settings:   settings,
		Stats:      entries,
	}, nil
}

// Export writes a snapshot to path, replacing the file atomically
func (s *Service) Export(ctx context.Context, path string) (Document, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return Document{}, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode backup: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return Document{}, fmt.Errorf("failed to write backup: %w", err)
	}
	return doc, nil
}

// Parse decodes a backup document. Comments and trailing commas are allowed
// so hand-edited files can be restored.
func Parse(data []byte) (Document, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Document{}, fmt.Errorf("invalid backup: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(standardized, &doc); err != nil {
		return Document{}, fmt.Errorf("invalid backup: %w", err)
	}
	if doc.Version != Version {
		return Document{}, fmt.Errorf("%w: %d", errUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

// Restore reads the backup at path and merges it into the store.
// Subjects and settings replace existing records with the same key;
// stat entries are added unless the date is already recorded.
func (s *Service) Restore(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read backup: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Result{}, err
	}
	return s.Apply(ctx, doc)
}

// Apply writes a parsed document into the store. The whole document is
// checked first, so an invalid one leaves the store untouched. Next revision
// dates are recomputed from the last revision and level.
func (s *Service) Apply(ctx context.Context, doc Document) (Result, error) {
	var res Result
	doc, err := s.normalize(doc)
	if err != nil {
		return res, err
	}

	for _, subject := range doc.Subjects {
		if err := s.subjects.Save(ctx, subject); err != nil {
			return res, fmt.Errorf("failed to restore subject %q: %w", subject.Name, err)
		}
		res.Subjects++
		res.Topics += len(subject.Topics)
	}

	for key, raw := range doc.Settings {
		if err := s.settings.Save(ctx, key, raw); err != nil {
			return res, fmt.Errorf("failed to restore settings %q: %w", key, err)
		}
		res.Settings++
	}

	for _, entry := range doc.Stats {
		if err := s.stats.Save(ctx, entry); err != nil {
			return res, fmt.Errorf("failed to restore stats: %w", err)
		}
		res.Stats++
	}
	return res, nil
}

func (s *Service) normalize(doc Document) (Document, error) {
	out := Document{
		Version:    doc.Version,
		ExportedAt: doc.ExportedAt,
		Subjects:   make([]models.Subject, 0, len(doc.Subjects)),
		Settings:   make(map[string]json.RawMessage, len(doc.Settings)),
		Stats:      make([]models.StatEntry, 0, len(doc.Stats)),
	}

	for _, subject := range doc.Subjects {
		subject.Name = strings.TrimSpace(subject.Name)
		if subject.ID == 0 || subject.Name == "" {
			return Document{}, models.NewValidationError("subjects", "every subject needs an id and a name")
		}
		topics := make([]models.Topic, len(subject.Topics))
		for i, topic := range subject.Topics {
			topic, err := s.normalizeTopic(subject, topic)
			if err != nil {
				return Document{}, err
			}
			topics[i] = topic
		}
		subject.Topics = topics
		out.Subjects = append(out.Subjects, subject)
	}

	for key, raw := range doc.Settings {
		if err := validateSetting(key, raw); err != nil {
			return Document{}, err
		}
		out.Settings[key] = raw
	}

	for _, entry := range doc.Stats {
		if _, err := dates.Parse(entry.Date); err != nil {
			return Document{}, models.NewValidationError("stats", fmt.Sprintf("invalid date %q", entry.Date))
		}
		out.Stats = append(out.Stats, entry)
	}
	return out, nil
}

func (s *Service) normalizeTopic(subject models.Subject, topic models.Topic) (models.Topic, error) {
	topic.SubjectID = subject.ID
	topic.Name = strings.TrimSpace(topic.Name)
	if topic.ID == 0 || topic.Name == "" {
		return models.Topic{}, models.NewValidationError("topics", fmt.Sprintf("every topic of %q needs an id and a name", subject.Name))
	}
	if topic.RevisionLevel < 0 {
		return models.Topic{}, models.NewValidationError("revisionLevel", fmt.Sprintf("topic %q has negative level %d", topic.Name, topic.RevisionLevel))
	}
	next, err := s.schedule.NextRevisionDateISO(topic.LastRevised, topic.RevisionLevel)
	if err != nil {
		return models.Topic{}, models.NewValidationError("lastRevised", fmt.Sprintf("topic %q has invalid date %q", topic.Name, topic.LastRevised))
	}
	topic.NextRevisionDate = next
	return topic, nil
}

func validateSetting(key string, raw json.RawMessage) error {
	var v interface{ Validate() error }
	switch key {
	case models.PomodoroSettingsKey:
		v = &models.PomodoroSettings{}
	case models.ReminderSettingsKey:
		v = &models.ReminderSettings{}
	default:
		return models.NewValidationError("settings", fmt.Sprintf("unknown key %q", key))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return models.NewValidationError(key, "malformed value")
	}
	return v.Validate()
}
