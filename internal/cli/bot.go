package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/example/revtrack/internal/bot"
	"github.com/example/revtrack/internal/excel"
	"github.com/example/revtrack/internal/scheduler"
)

func (a *App) botCmd() *Command {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "bot",
		Short: "Run the Telegram bot and the daily reminder",
		Long: `Run the Telegram bot and the daily reminder until interrupted.

Needs TELEGRAM_BOT_TOKEN and TELEGRAM_OWNER_ID. Only the owner can use the bot.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if a.Config == nil {
				return errors.New("configuration is not loaded")
			}
			return a.runBot(ctx)
		},
	}
}

func (a *App) runBot(ctx context.Context) error {
	if err := a.Config.ValidateBot(); err != nil {
		return err
	}
	theme, err := excel.ParseTheme(a.Config.Theme)
	if err != nil {
		return err
	}
	botConfig := bot.DefaultConfig()
	botConfig.Token = a.Config.Telegram.Token
	botConfig.OwnerID = a.Config.Telegram.OwnerID
	botConfig.Theme = theme

	b, err := bot.New(botConfig, a.Tracker, a.Log)
	if err != nil {
		return err
	}

	if err := b.LoadSettings(ctx); err != nil {
		return err
	}

	reminders := scheduler.New(a.Tracker, b, a.Location, a.Log)
	if err := reminders.Start(); err != nil {
		return fmt.Errorf("failed to start reminders: %w", err)
	}
	defer reminders.Stop()

	// Catch up on a reminder missed while the bot was down
	if err := reminders.RunNow(ctx); err != nil {
		a.Log.Warn("start-up reminder check failed", "error", err)
	}

	a.Log.Info("bot started, press Ctrl+C to stop")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.Log.Info("bot stopped successfully")
	return nil
}
