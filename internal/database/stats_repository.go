package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/revtrack/pkg/models"
)

// StatsRepository stores the day-keyed completion log
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new repository instance
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetAll returns every entry ordered by date
func (r *StatsRepository) GetAll(ctx context.Context) ([]models.StatEntry, error) {
	var entries []models.StatEntry
	if err := r.db.SelectContext(ctx, &entries, "SELECT date FROM stats ORDER BY date"); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return entries, nil
}

// Create inserts an entry; a second entry for the same date fails with models.ErrAlreadyExists
func (r *StatsRepository) Create(ctx context.Context, entry models.StatEntry) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("INSERT INTO stats (date) VALUES (?)"), entry.Date)
	if err != nil {
		return wrapErr(err, "failed to create stat for %s", entry.Date)
	}
	return nil
}

// Save inserts an entry unless its date is already recorded
func (r *StatsRepository) Save(ctx context.Context, entry models.StatEntry) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO stats (date) VALUES (?) ON CONFLICT (date) DO NOTHING"), entry.Date)
	if err != nil {
		return fmt.Errorf("failed to save stat for %s: %w", entry.Date, err)
	}
	return nil
}
