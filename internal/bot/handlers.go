package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/excel"
	"github.com/example/revtrack/internal/focus"
	"github.com/example/revtrack/internal/tracker"
	"github.com/example/revtrack/pkg/models"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	return b.runCommand(ctx, message.Chat.ID, message.Command(), strings.TrimSpace(message.CommandArguments()))
}

func (b *Bot) runCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "start":
		return b.handleStart(chatID)
	case "menu":
		return b.showMainMenu(chatID)
	case "help":
		return b.handleHelp(chatID)
	case "subjects":
		return b.handleSubjects(ctx, chatID)
	case "addsubject":
		return b.handleAddSubject(ctx, chatID, args)
	case "addtopic":
		return b.handleAddTopic(ctx, chatID, args)
	case "due":
		return b.handleDue(ctx, chatID)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "settings":
		return b.handleSettings(ctx, chatID, args)
	case "focus":
		return b.handleFocus(chatID, args)
	case "remind":
		return b.handleRemind(ctx, chatID, args)
	case "export":
		return b.handleExport(ctx, chatID)
	default:
		return b.reply(chatID, "Unknown command. Use /help to see the available commands.")
	}
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to your study tracker!\n\n" +
		"🔹 How it works:\n" +
		"1. Add a subject and its topics\n" +
		"2. Revise topics when they are due\n" +
		"3. Intervals grow with every revision\n" +
		"4. Keep your streak going\n\n" +
		"Use /help for all commands."

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Main Menu - choose an option:")
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, formatHelp())
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "⬅️ Menu", CallbackData: menuData("menu")}},
	})
	return b.sendMessage(msg)
}

// handleSubjects sends an overview followed by one message per subject
func (b *Bot) handleSubjects(ctx context.Context, chatID int64) error {
	dash, err := b.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	if len(dash.Subjects) == 0 {
		return b.reply(chatID, "You have no subjects yet. Add one with /addsubject <name>.")
	}

	if err := b.reply(chatID, fmt.Sprintf("📚 %d subject(s), %d%% complete overall.",
		len(dash.Subjects), dash.CompletionPercent)); err != nil {
		return err
	}

	today := b.svc.Today()
	for i, s := range dash.Subjects {
		subject := models.Subject{ID: s.ID, Name: s.Name, Topics: s.Topics}
		msg := tgbotapi.NewMessage(chatID, formatSubject(i+1, subject, today))
		msg.ReplyMarkup = subjectKeyboard(subject)
		if err := b.sendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleAddSubject(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		return b.reply(chatID, "Usage: /addsubject <name>")
	}
	subject, err := b.svc.AddSubject(ctx, name)
	if err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("✅ Subject \"%s\" added. Add topics with /addtopic.", subject.Name))
}

func (b *Bot) handleAddTopic(ctx context.Context, chatID int64, args string) error {
	index, name, lastRevised, err := parseAddTopicArgs(args, dates.Format(b.svc.Today()))
	if err != nil {
		return b.reply(chatID, err.Error())
	}

	subjects, err := b.svc.Subjects(ctx)
	if err != nil {
		return err
	}
	if index > len(subjects) {
		return b.reply(chatID, fmt.Sprintf("There is no subject number %d, see /subjects.", index))
	}
	subject := subjects[index-1]

	topic, err := b.svc.AddTopic(ctx, subject.ID, name, lastRevised)
	if err != nil {
		return err
	}
	return b.reply(chatID, fmt.Sprintf("✅ Topic \"%s\" added to \"%s\".\nNext revision: %s",
		topic.Name, subject.Name, topic.NextRevisionDate))
}

func (b *Bot) dueView(ctx context.Context) (string, tgbotapi.InlineKeyboardMarkup, error) {
	dash, err := b.svc.Dashboard(ctx)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	return formatDue(dash.Due), dueKeyboard(dash.Due), nil
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) error {
	text, keyboard, err := b.dueView(ctx)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return b.sendMessage(msg)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	dash, err := b.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	return b.reply(chatID, formatStats(dash))
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64, args string) error {
	if args != "" {
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return b.reply(chatID, "Usage: /settings <work minutes> <break minutes>")
		}
		work, err1 := strconv.Atoi(fields[0])
		brk, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return b.reply(chatID, "Please give both durations as whole minutes.")
		}
		p, err := b.svc.SavePomodoro(ctx, work, brk)
		if err != nil {
			return err
		}
		b.timer.Configure(focus.Durations(p))
	}

	p, err := b.svc.Pomodoro(ctx)
	if err != nil {
		return err
	}
	r, err := b.svc.Reminders(ctx)
	if err != nil {
		return err
	}
	return b.reply(chatID, formatSettings(p, r))
}

func (b *Bot) handleFocus(chatID int64, args string) error {
	switch strings.ToLower(args) {
	case "start":
		if !b.timer.Start() {
			return b.reply(chatID, "⏱ The timer is already running.\n"+formatFocus(b.timer.State()))
		}
	case "pause":
		b.timer.Pause()
	case "reset":
		b.timer.Reset()
	case "", "status":
	default:
		return b.reply(chatID, "Usage: /focus start|pause|reset|status")
	}

	msg := tgbotapi.NewMessage(chatID, formatFocus(b.timer.State()))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "▶️", CallbackData: focusData("start")},
		{Text: "⏸", CallbackData: focusData("pause")},
		{Text: "🔄", CallbackData: focusData("reset")},
		{Text: "⏱", CallbackData: focusData("status")},
	}})
	return b.sendMessage(msg)
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, args string) error {
	current, err := b.svc.Reminders(ctx)
	if err != nil {
		return err
	}

	switch arg := strings.ToLower(args); arg {
	case "":
		return b.handleSettings(ctx, chatID, "")
	case "on":
		// RequestPermission confirms with its own message
		_, err := b.RequestPermission(ctx)
		return err
	case "off":
		if _, err := b.svc.SaveReminders(ctx, false, current.Hour); err != nil {
			return err
		}
		b.setPermitted(false)
		return b.reply(chatID, "🔕 Reminders disabled.")
	default:
		hour, err := strconv.Atoi(arg)
		if err != nil {
			return b.reply(chatID, "Usage: /remind on|off|<hour 0-23>")
		}
		saved, err := b.svc.SaveReminders(ctx, current.Enabled, hour)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("⏰ Reminders will arrive at %02d:00.", saved.Hour)
		if !saved.Enabled {
			text += " Turn them on with /remind on."
		}
		return b.reply(chatID, text)
	}
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	dash, err := b.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	data, err := excel.ReportBytes(dash, b.config.Theme)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("dashboard-%s.xlsx", dash.Today),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("📊 Dashboard for %s", dash.Today)
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send export: %w", err)
	}
	return nil
}

// handleDocument imports topics from an uploaded spreadsheet
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	document := message.Document
	chatID := message.Chat.ID

	format, err := excel.FormatFromPath(document.FileName)
	if err != nil {
		return b.reply(chatID, "Please send an .xlsx or .csv file with columns Subject, Topic, LastRevised.")
	}
	if b.config.MaxUploadBytes > 0 && int64(document.FileSize) > b.config.MaxUploadBytes {
		return b.reply(chatID, "This file is too large to import.")
	}

	url, err := b.api.GetFileDirectURL(document.FileID)
	if err != nil {
		return fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: status %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if b.config.MaxUploadBytes > 0 {
		body = io.LimitReader(resp.Body, b.config.MaxUploadBytes)
	}
	result, err := excel.Import(ctx, b.svc, body, format, excel.DefaultImportConfig())
	if err != nil {
		return b.reply(chatID, "❌ Could not read the file: "+err.Error())
	}
	b.log.Info("spreadsheet imported",
		"file", document.FileName,
		"topics", result.TopicsCreated,
		"errors", len(result.Errors),
	)
	return b.reply(chatID, formatImportResult(result))
}

// HandleCallback handles presses of inline buttons
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	data, err := parseCallback(callback.Data)
	if err != nil {
		b.log.Warn("bad callback", "data", callback.Data, "error", err)
		b.answer(callback.ID, "⚠️ Unknown action")
		return nil
	}

	switch data.Action {
	case actionMenu:
		b.answer(callback.ID, "")
		return b.runCommand(ctx, callback.Message.Chat.ID, data.Arg, "")
	case actionFocus:
		b.answer(callback.ID, "")
		return b.handleFocus(callback.Message.Chat.ID, data.Arg)
	case actionRevise:
		return b.handleRevise(ctx, callback, data)
	case actionToggle:
		return b.handleToggle(ctx, callback, data)
	case actionDeleteTopic, actionDeleteSubject:
		return b.askDelete(ctx, callback, data)
	case actionConfirm:
		return b.handleConfirm(ctx, callback, data.Arg)
	case actionCancel:
		b.takePending(data.Arg)
		b.answer(callback.ID, "Cancelled")
		return b.editMessage(tgbotapi.NewEditMessageText(
			callback.Message.Chat.ID, callback.Message.MessageID, "Cancelled. Nothing was deleted."))
	}
	return nil
}

func (b *Bot) handleRevise(ctx context.Context, callback *tgbotapi.CallbackQuery, data callbackData) error {
	topic, err := b.svc.ReviseTopic(ctx, data.SubjectID, data.TopicID)
	if err != nil {
		b.answer(callback.ID, "")
		return err
	}
	b.answer(callback.ID, fmt.Sprintf("✅ Revised! Next revision on %s", topic.NextRevisionDate))

	if data.Arg == viewDue {
		text, keyboard, err := b.dueView(ctx)
		if err != nil {
			return err
		}
		return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(
			callback.Message.Chat.ID, callback.Message.MessageID, text, keyboard))
	}
	return b.refreshSubject(ctx, callback, data.SubjectID)
}

func (b *Bot) handleToggle(ctx context.Context, callback *tgbotapi.CallbackQuery, data callbackData) error {
	subject, err := b.svc.Subject(ctx, data.SubjectID)
	if err != nil {
		b.answer(callback.ID, "")
		return err
	}
	i := subject.TopicIndex(data.TopicID)
	if i < 0 {
		b.answer(callback.ID, "")
		return fmt.Errorf("topic %d: %w", data.TopicID, models.ErrNotFound)
	}

	if _, err := b.svc.SetTopicComplete(ctx, data.SubjectID, data.TopicID, !subject.Topics[i].IsComplete); err != nil {
		b.answer(callback.ID, "")
		return err
	}
	b.answer(callback.ID, "")
	return b.refreshSubject(ctx, callback, data.SubjectID)
}

// refreshSubject redraws the subject message the button belongs to
func (b *Bot) refreshSubject(ctx context.Context, callback *tgbotapi.CallbackQuery, subjectID int64) error {
	subjects, err := b.svc.Subjects(ctx)
	if err != nil {
		return err
	}
	for i, s := range subjects {
		if s.ID == subjectID {
			return b.editMessage(tgbotapi.NewEditMessageTextAndMarkup(
				callback.Message.Chat.ID,
				callback.Message.MessageID,
				formatSubject(i+1, s, b.svc.Today()),
				subjectKeyboard(s),
			))
		}
	}
	return b.editMessage(tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID, "This subject was deleted."))
}

// promptRecorder captures the confirmation prompt without approving it
type promptRecorder struct {
	prompt string
}

func (p *promptRecorder) Confirm(_ context.Context, prompt string) (bool, error) {
	p.prompt = prompt
	return false, nil
}

// askDelete asks the tracker for its confirmation prompt and shows it with
// Yes/No buttons. Nothing is deleted until the owner presses Yes.
func (b *Bot) askDelete(ctx context.Context, callback *tgbotapi.CallbackQuery, data callbackData) error {
	action := pendingAction{SubjectID: data.SubjectID}
	recorder := &promptRecorder{}

	var err error
	if data.Action == actionDeleteTopic {
		action.TopicID = data.TopicID
		err = b.svc.DeleteTopic(ctx, data.SubjectID, data.TopicID, recorder)
	} else {
		err = b.svc.DeleteSubject(ctx, data.SubjectID, recorder)
	}
	b.answer(callback.ID, "")
	if !errors.Is(err, models.ErrDeclined) {
		if err == nil {
			err = errors.New("delete went ahead without confirmation")
		}
		return err
	}

	token := b.addPending(action)
	msg := tgbotapi.NewMessage(callback.Message.Chat.ID, "❓ "+recorder.prompt)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{
		{Text: "Yes, delete", CallbackData: callbackData{Action: actionConfirm, Arg: token}.String()},
		{Text: "No", CallbackData: callbackData{Action: actionCancel, Arg: token}.String()},
	}})
	return b.sendMessage(msg)
}

func (b *Bot) handleConfirm(ctx context.Context, callback *tgbotapi.CallbackQuery, token string) error {
	action, ok := b.takePending(token)
	if !ok {
		b.answer(callback.ID, "This confirmation has expired")
		return nil
	}

	var err error
	if action.TopicID != 0 {
		err = b.svc.DeleteTopic(ctx, action.SubjectID, action.TopicID, tracker.AlwaysConfirm)
	} else {
		err = b.svc.DeleteSubject(ctx, action.SubjectID, tracker.AlwaysConfirm)
	}
	b.answer(callback.ID, "")
	if err != nil {
		return err
	}
	return b.editMessage(tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID, "🗑 Deleted. Use /subjects to see the updated list."))
}
