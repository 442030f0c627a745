package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SettingsRepository stores singleton records as JSON documents under a fixed key
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new repository instance
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get decodes the record stored under key into v, or returns models.ErrNotFound
func (r *SettingsRepository) Get(ctx context.Context, key string, v any) error {
	var raw string
	err := r.db.GetContext(ctx, &raw, r.db.Rebind("SELECT value FROM settings WHERE key = ?"), key)
	if err != nil {
		return wrapErr(err, "failed to get settings %q", key)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode settings %q: %w", key, err)
	}
	return nil
}

// Save stores v under key, replacing any previous record
func (r *SettingsRepository) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings %q: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save settings %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored setting keys
func (r *SettingsRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, "SELECT key FROM settings ORDER BY key"); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return keys, nil
}
