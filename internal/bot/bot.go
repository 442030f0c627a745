package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/revtrack/internal/focus"
	"github.com/example/revtrack/internal/stats"
	"github.com/example/revtrack/internal/tracker"
	"github.com/example/revtrack/pkg/models"
)

var errNotPermitted = errors.New("notifications are not enabled")

// Tracker is the part of the tracker service driven by the bot
type Tracker interface {
	Subjects(ctx context.Context) ([]models.Subject, error)
	Subject(ctx context.Context, id int64) (models.Subject, error)
	AddSubject(ctx context.Context, name string) (models.Subject, error)
	DeleteSubject(ctx context.Context, id int64, confirm tracker.Confirmer) error
	AddTopic(ctx context.Context, subjectID int64, name, lastRevised string) (models.Topic, error)
	SetTopicComplete(ctx context.Context, subjectID, topicID int64, complete bool) (models.Topic, error)
	ReviseTopic(ctx context.Context, subjectID, topicID int64) (models.Topic, error)
	DeleteTopic(ctx context.Context, subjectID, topicID int64, confirm tracker.Confirmer) error
	Dashboard(ctx context.Context) (stats.Dashboard, error)
	Pomodoro(ctx context.Context) (models.PomodoroSettings, error)
	SavePomodoro(ctx context.Context, workMinutes, breakMinutes int) (models.PomodoroSettings, error)
	Reminders(ctx context.Context) (models.ReminderSettings, error)
	SaveReminders(ctx context.Context, enabled bool, hour int) (models.ReminderSettings, error)
	Today() time.Time
}

// botAPI is the subset of *tgbotapi.BotAPI the bot uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// pendingAction is a destructive action waiting for the owner's answer
type pendingAction struct {
	SubjectID int64
	TopicID   int64 // zero for a whole subject
}

// Bot represents the Telegram bot application. It is both the UI and the
// notification channel for reminders and the focus timer.
type Bot struct {
	api    botAPI
	config *BotConfig
	svc    Tracker
	timer  *focus.Timer
	log    *slog.Logger
	http   *http.Client

	mu        sync.Mutex
	permitted bool
	pending   map[string]pendingAction
	seq       int
}

// New creates a new bot instance
func New(config *BotConfig, svc Tracker, log *slog.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram token is not set")
	}
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Info("authorized on account", "username", api.Self.UserName)

	return newBot(api, config, svc, log), nil
}

func newBot(api botAPI, config *BotConfig, svc Tracker, log *slog.Logger) *Bot {
	b := &Bot{
		api:     api,
		config:  config,
		svc:     svc,
		log:     log,
		http:    &http.Client{Timeout: time.Minute},
		pending: make(map[string]pendingAction),
	}
	b.timer = focus.NewTimerFromSettings(models.DefaultPomodoroSettings(), focus.WithAlarm(b.focusAlarm))
	return b
}

// Start loads the stored settings and handles updates until ctx is cancelled.
// Updates are processed one at a time.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.LoadSettings(ctx); err != nil {
		return err
	}

	// Set up the update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = int(b.config.PollTimeout / time.Second)

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started", "owner_id", b.config.OwnerID)

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.timer.Pause()
	b.log.Info("bot stopped")
}

// LoadSettings applies the stored focus durations and reminder permission
func (b *Bot) LoadSettings(ctx context.Context) error {
	p, err := b.svc.Pomodoro(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus settings: %w", err)
	}
	b.timer.SetDurations(focus.Durations(p))

	r, err := b.svc.Reminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder settings: %w", err)
	}
	b.setPermitted(r.Enabled)
	return nil
}

// RequestPermission enables daily reminders for the owner chat
func (b *Bot) RequestPermission(ctx context.Context) (bool, error) {
	current, err := b.svc.Reminders(ctx)
	if err != nil {
		return false, err
	}
	if _, err := b.svc.SaveReminders(ctx, true, current.Hour); err != nil {
		return false, err
	}
	b.setPermitted(true)

	if err := b.Show(ctx, "Reminders Enabled!", "You will now receive daily reminders."); err != nil {
		b.log.Warn("failed to confirm reminders", "error", err)
	}
	return true, nil
}

// Show sends a notification to the owner chat
func (b *Bot) Show(_ context.Context, title, body string) error {
	if !b.isPermitted() {
		return errNotPermitted
	}
	msg := tgbotapi.NewMessage(b.config.OwnerID, fmt.Sprintf("🔔 %s\n%s", title, body))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔔 Show due topics", CallbackData: menuData("due")}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) setPermitted(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.permitted = v
}

func (b *Bot) isPermitted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.permitted
}

// focusAlarm runs on the timer goroutine when a phase ends
func (b *Bot) focusAlarm(next focus.Phase) {
	state := b.timer.State()
	msg := tgbotapi.NewMessage(b.config.OwnerID,
		fmt.Sprintf("⏰ %s\n%s on the clock. Press start when you are ready.", next.Status(), state.Clock()))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "▶️ Start " + next.String(), CallbackData: focusData("start")}},
	})
	if err := b.sendMessage(msg); err != nil {
		b.log.Error("failed to send focus alarm", "error", err)
	}
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		message := update.Message
		if message.From == nil || message.Chat == nil {
			return
		}
		if message.From.ID != b.config.OwnerID {
			b.log.Warn("message from stranger", "user_id", message.From.ID)
			_ = b.reply(message.Chat.ID, "Sorry, this bot is private.")
			return
		}

		var err error
		switch {
		case message.IsCommand():
			err = b.HandleCommand(ctx, message)
		case message.Document != nil:
			err = b.handleDocument(ctx, message)
		default:
			err = b.reply(message.Chat.ID, "I don't understand. Use /menu to show the main menu.")
		}
		if err != nil {
			b.replyError(message.Chat.ID, err)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		if callback.From == nil || callback.Message == nil {
			return
		}
		if callback.From.ID != b.config.OwnerID {
			b.answer(callback.ID, "Sorry, this bot is private.")
			return
		}
		if err := b.HandleCallback(ctx, callback); err != nil {
			b.replyError(callback.Message.Chat.ID, err)
		}
	}
}

// replyError tells the owner what went wrong in plain words
func (b *Bot) replyError(chatID int64, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		_ = b.reply(chatID, "⚠️ "+validationText(verr))
	case errors.Is(err, models.ErrNotFound):
		_ = b.reply(chatID, "⚠️ Not found. It may have been deleted already.")
	default:
		b.log.Error("update failed", "error", err)
		_ = b.reply(chatID, "❌ Something went wrong. Please try again later.")
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) editMessage(msg tgbotapi.EditMessageTextConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		// Telegram rejects edits that change nothing; not worth bothering the user
		b.log.Debug("failed to edit message", "error", err)
	}
	return nil
}

// answer removes the loading state of a pressed button
func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
}

func (b *Bot) addPending(action pendingAction) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	token := fmt.Sprintf("%d", b.seq)
	b.pending[token] = action
	return token
}

func (b *Bot) takePending(token string) (pendingAction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	action, ok := b.pending[token]
	delete(b.pending, token)
	return action, ok
}
