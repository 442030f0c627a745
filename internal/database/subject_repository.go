package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/revtrack/pkg/models"
)

const topicColumns = `subject_id, id, name, last_revised, revision_level, next_revision_date, is_complete`

// SubjectRepository stores subjects together with their ordered topics.
// A subject is always read and written as a whole.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// GetAll returns every subject in creation order
func (r *SubjectRepository) GetAll(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.SelectContext(ctx, &subjects, "SELECT id, name FROM subjects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get subjects: %w", err)
	}

	var topics []models.Topic
	err = r.db.SelectContext(ctx, &topics,
		"SELECT "+topicColumns+" FROM topics ORDER BY subject_id, position")
	if err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}

	bySubject := make(map[int64][]models.Topic, len(subjects))
	for _, t := range topics {
		bySubject[t.SubjectID] = append(bySubject[t.SubjectID], t)
	}
	for i := range subjects {
		subjects[i].Topics = bySubject[subjects[i].ID]
	}
	return subjects, nil
}

// GetByID returns a subject by ID, or models.ErrNotFound
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (models.Subject, error) {
	var subject models.Subject
	err := r.db.GetContext(ctx, &subject, r.db.Rebind("SELECT id, name FROM subjects WHERE id = ?"), id)
	if err != nil {
		return models.Subject{}, wrapErr(err, "failed to get subject %d", id)
	}

	err = r.db.SelectContext(ctx, &subject.Topics,
		r.db.Rebind("SELECT "+topicColumns+" FROM topics WHERE subject_id = ? ORDER BY position"), id)
	if err != nil {
		return models.Subject{}, fmt.Errorf("failed to get topics of subject %d: %w", id, err)
	}
	return subject, nil
}

// Create inserts a new subject; it fails with models.ErrAlreadyExists if the ID is taken
func (r *SubjectRepository) Create(ctx context.Context, subject models.Subject) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO subjects (id, name) VALUES (?, ?)"),
			subject.ID, subject.Name)
		if err != nil {
			return wrapErr(err, "failed to create subject")
		}
		return insertTopics(ctx, tx, subject)
	})
}

// Save inserts or replaces a subject and its whole topic list
func (r *SubjectRepository) Save(ctx context.Context, subject models.Subject) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO subjects (id, name) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name`),
			subject.ID, subject.Name)
		if err != nil {
			return fmt.Errorf("failed to save subject: %w", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM topics WHERE subject_id = ?"), subject.ID)
		if err != nil {
			return fmt.Errorf("failed to clear topics: %w", err)
		}
		return insertTopics(ctx, tx, subject)
	})
}

// Delete removes a subject and all of its topics
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		// Topics go first so the delete does not depend on the foreign key pragma
		_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM topics WHERE subject_id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete topics: %w", err)
		}

		result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subjects WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete subject: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("subject %d: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

func insertTopics(ctx context.Context, tx *sqlx.Tx, subject models.Subject) error {
	query := tx.Rebind(`
		INSERT INTO topics (` + topicColumns + `, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, t := range subject.Topics {
		_, err := tx.ExecContext(ctx, query,
			subject.ID,
			t.ID,
			t.Name,
			t.LastRevised,
			t.RevisionLevel,
			t.NextRevisionDate,
			t.IsComplete,
			i,
		)
		if err != nil {
			return wrapErr(err, "failed to insert topic %q", t.Name)
		}
	}
	return nil
}

func (r *SubjectRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
