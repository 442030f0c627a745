// Package cli implements the revtrack command line.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/revtrack/internal/backup"
	"github.com/example/revtrack/internal/config"
	"github.com/example/revtrack/internal/database"
	"github.com/example/revtrack/internal/tracker"
	"github.com/example/revtrack/pkg/models"
)

// App holds everything the commands work on
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Tracker *tracker.Service
	Backup  *backup.Service
	// Location is the configured reminder zone; the tracker's day follows it
	Location *time.Location

	// Confirm answers destructive prompts when --yes is not given
	Confirm tracker.Confirmer
	// TickInterval is the focus timer tick; one tick removes one second
	TickInterval time.Duration
}

// NewApp wires the stores, the tracker and the backup service over db.
// The tracker clock runs in the configured reminder zone unless opts
// replace it.
func NewApp(cfg *config.Config, db *sqlx.DB, log *slog.Logger, opts ...tracker.Option) *App {
	subjects := database.NewSubjectRepository(db)
	stats := database.NewStatsRepository(db)
	settings := database.NewSettingsRepository(db)

	loc := time.Local
	if cfg != nil {
		if l, err := cfg.Reminder.Location(); err == nil {
			loc = l
		} else {
			log.Warn("falling back to the system timezone", "error", err)
		}
	}

	opts = append([]tracker.Option{
		tracker.WithLogger(log),
		tracker.WithClock(func() time.Time { return time.Now().In(loc) }),
	}, opts...)
	return &App{
		Config:       cfg,
		Log:          log,
		Location:     loc,
		Tracker:      tracker.New(subjects, stats, settings, opts...),
		Backup:       backup.New(subjects, stats, settings),
		Confirm:      linerConfirmer{},
		TickInterval: time.Second,
	}
}

func (a *App) commands() []*Command {
	return []*Command{
		a.botCmd(),
		a.dashboardCmd(),
		a.subjectsCmd(),
		a.addSubjectCmd(),
		a.addTopicCmd(),
		a.reviseCmd(),
		a.completeCmd(),
		a.deleteSubjectCmd(),
		a.deleteTopicCmd(),
		a.settingsCmd(),
		a.focusCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.backupCmd(),
		a.restoreCmd(),
	}
}

// Run dispatches args[0] to its command. Returns exit code.
func Run(ctx context.Context, app *App, o *IO, args []string) int {
	commands := app.commands()

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(o, commands)
		return 0
	}

	for _, cmd := range commands {
		if cmd.Name() == args[0] {
			return cmd.Run(ctx, o, args[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", args[0])
	o.ErrPrintln()
	printUsage(o, commands)
	return 1
}

func printUsage(o *IO, commands []*Command) {
	o.Println("revtrack - spaced repetition study tracker")
	o.Println()
	o.Println("Usage: revtrack <command> [args] [flags]")
	o.Println()
	o.Println("Commands:")
	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}
	o.Println()
	o.Println("Run 'revtrack <command> --help' for the flags of a command.")
}

// describe turns store and validation errors into short messages
func describe(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		msgs := make([]string, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			msgs = append(msgs, fe.Field+": "+fe.Message)
		}
		return strings.Join(msgs, "; ")
	case errors.Is(err, models.ErrDeclined):
		return "cancelled"
	default:
		return err.Error()
	}
}
