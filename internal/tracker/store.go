package tracker

import (
	"context"

	"github.com/example/revtrack/pkg/models"
)

// SubjectStore persists subjects together with their topics
type SubjectStore interface {
	GetAll(ctx context.Context) ([]models.Subject, error)
	GetByID(ctx context.Context, id int64) (models.Subject, error)
	Create(ctx context.Context, subject models.Subject) error
	Save(ctx context.Context, subject models.Subject) error
	Delete(ctx context.Context, id int64) error
}

// StatsStore persists the day-keyed activity log
type StatsStore interface {
	GetAll(ctx context.Context) ([]models.StatEntry, error)
	Create(ctx context.Context, entry models.StatEntry) error
}

// SettingsStore persists singleton records under fixed keys
type SettingsStore interface {
	Get(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f(ctx, prompt)
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm approves every prompt. Used for --yes and for actions
// already confirmed through another channel.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})
