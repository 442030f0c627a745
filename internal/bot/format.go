package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/excel"
	"github.com/example/revtrack/internal/focus"
	"github.com/example/revtrack/internal/spaced_repetition"
	"github.com/example/revtrack/internal/stats"
	"github.com/example/revtrack/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Subjects", CallbackData: menuData("subjects")},
			{Text: "🔔 Due today", CallbackData: menuData("due")},
		},
		{
			{Text: "📊 Statistics", CallbackData: menuData("stats")},
			{Text: "⚙️ Settings", CallbackData: menuData("settings")},
		},
		{
			{Text: "▶️ Focus", CallbackData: focusData("start")},
			{Text: "📥 Export", CallbackData: menuData("export")},
		},
	}
}

// Callback actions
const (
	actionRevise        = "revise"
	actionToggle        = "toggle"
	actionDeleteTopic   = "deltopic"
	actionDeleteSubject = "delsubject"
	actionConfirm       = "confirm"
	actionCancel        = "cancel"
	actionMenu          = "menu"
	actionFocus         = "focus"
)

// viewDue marks topic actions pressed on the due list
const viewDue = "due"

// callbackData is the decoded form of inline button data:
//
//	revise:<sid>:<tid>[:due]  toggle:<sid>:<tid>  deltopic:<sid>:<tid>
//	delsubject:<sid>  confirm:<token>  cancel:<token>  menu:<cmd>  focus:<cmd>
type callbackData struct {
	Action    string
	SubjectID int64
	TopicID   int64
	Arg       string
}

func (c callbackData) String() string {
	switch c.Action {
	case actionRevise, actionToggle, actionDeleteTopic:
		s := fmt.Sprintf("%s:%d:%d", c.Action, c.SubjectID, c.TopicID)
		if c.Arg != "" {
			s += ":" + c.Arg
		}
		return s
	case actionDeleteSubject:
		return fmt.Sprintf("%s:%d", c.Action, c.SubjectID)
	default:
		return c.Action + ":" + c.Arg
	}
}

func parseCallback(data string) (callbackData, error) {
	parts := strings.Split(data, ":")
	c := callbackData{Action: parts[0]}

	switch c.Action {
	case actionRevise, actionToggle, actionDeleteTopic:
		if len(parts) < 3 || len(parts) > 4 {
			return c, fmt.Errorf("malformed callback %q", data)
		}
		var err error
		if c.SubjectID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
			return c, fmt.Errorf("invalid subject id in %q: %w", data, err)
		}
		if c.TopicID, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
			return c, fmt.Errorf("invalid topic id in %q: %w", data, err)
		}
		if len(parts) == 4 {
			c.Arg = parts[3]
		}
	case actionDeleteSubject:
		if len(parts) != 2 {
			return c, fmt.Errorf("malformed callback %q", data)
		}
		var err error
		if c.SubjectID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
			return c, fmt.Errorf("invalid subject id in %q: %w", data, err)
		}
	case actionConfirm, actionCancel, actionMenu, actionFocus:
		if len(parts) != 2 || parts[1] == "" {
			return c, fmt.Errorf("malformed callback %q", data)
		}
		c.Arg = parts[1]
	default:
		return c, fmt.Errorf("unknown callback action %q", c.Action)
	}
	return c, nil
}

func menuData(command string) string { return callbackData{Action: actionMenu, Arg: command}.String() }
func focusData(command string) string {
	return callbackData{Action: actionFocus, Arg: command}.String()
}

// parseAddTopicArgs splits "<subject#> <name...> [YYYY-MM-DD]".
// The date defaults to today.
func parseAddTopicArgs(args, today string) (index int, name, lastRevised string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", "", fmt.Errorf("usage: /addtopic <subject number> <topic name> [YYYY-MM-DD]")
	}
	index, err = strconv.Atoi(fields[0])
	if err != nil || index < 1 {
		return 0, "", "", fmt.Errorf("subject number must be a positive number, see /subjects")
	}

	rest := fields[1:]
	lastRevised = today
	if len(rest) > 1 {
		if _, perr := dates.Parse(rest[len(rest)-1]); perr == nil {
			lastRevised = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
	}
	return index, strings.Join(rest, " "), lastRevised, nil
}

func validationText(verr *models.ValidationError) string {
	parts := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		parts = append(parts, fe.Message)
	}
	return strings.Join(parts, "; ")
}

func formatHelp() string {
	var intervals []string
	for _, d := range spaced_repetition.DefaultIntervals {
		intervals = append(intervals, strconv.Itoa(d))
	}

	return "📖 Help\n\n" +
		"📚 Subjects and topics:\n" +
		"/subjects - list subjects with their topics\n" +
		"/addsubject <name> - add a subject\n" +
		"/addtopic <subject#> <name> [YYYY-MM-DD] - add a topic\n" +
		"/due - topics to revise today\n\n" +
		"📊 Progress:\n" +
		"/stats - streak, completion and weekly activity\n" +
		"/export - dashboard as an Excel file\n\n" +
		"⏱ Focus:\n" +
		"/focus start|pause|reset|status\n" +
		"/settings [work break] - focus durations in minutes\n\n" +
		"🔔 Reminders:\n" +
		"/remind on|off|<hour>\n\n" +
		"Send an .xlsx or .csv file with columns Subject, Topic, LastRevised to import topics.\n\n" +
		"🔄 Revision intervals (days): " + strings.Join(intervals, ", ")
}

// formatSubject renders one subject with numbered topics
func formatSubject(index int, s models.Subject, today time.Time) string {
	var text strings.Builder
	fmt.Fprintf(&text, "%d. 📚 %s · %d%% complete\n", index, s.Name, stats.SubjectPercent(s))
	if len(s.Topics) == 0 {
		text.WriteString("No topics yet. Add one with /addtopic.")
		return text.String()
	}
	for i, t := range s.Topics {
		mark := "⬜"
		if t.IsComplete {
			mark = "✅"
		}
		fmt.Fprintf(&text, "\n%d) %s %s · level %d · next %s", i+1, mark, t.Name, t.RevisionLevel, t.NextRevisionDate)
		if spaced_repetition.IsDue(t, today) {
			text.WriteString(" 🔔")
		}
	}
	return text.String()
}

// subjectKeyboard has one row of actions per topic and a delete row
func subjectKeyboard(s models.Subject) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	for i, t := range s.Topics {
		n := strconv.Itoa(i + 1)
		toggle := "✅ " + n
		if t.IsComplete {
			toggle = "⬜ " + n
		}
		rows = append(rows, []MenuButton{
			{Text: "🔁 Revise " + n, CallbackData: callbackData{Action: actionRevise, SubjectID: s.ID, TopicID: t.ID}.String()},
			{Text: toggle, CallbackData: callbackData{Action: actionToggle, SubjectID: s.ID, TopicID: t.ID}.String()},
			{Text: "🗑 " + n, CallbackData: callbackData{Action: actionDeleteTopic, SubjectID: s.ID, TopicID: t.ID}.String()},
		})
	}
	rows = append(rows, []MenuButton{
		{Text: "🗑 Delete subject", CallbackData: callbackData{Action: actionDeleteSubject, SubjectID: s.ID}.String()},
	})
	return createKeyboard(rows)
}

func formatDue(due []spaced_repetition.DueTopic) string {
	if len(due) == 0 {
		return "🎉 Nothing to revise today."
	}
	var text strings.Builder
	fmt.Fprintf(&text, "🔔 %d topic(s) to revise:\n", len(due))
	for i, d := range due {
		fmt.Fprintf(&text, "\n%d. %s / %s (since %s)", i+1, d.SubjectName, d.TopicName, d.NextRevisionDate)
	}
	return text.String()
}

func dueKeyboard(due []spaced_repetition.DueTopic) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]MenuButton, 0, len(due)+1)
	for i, d := range due {
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("🔁 %d. %s", i+1, d.TopicName),
			CallbackData: callbackData{Action: actionRevise, SubjectID: d.SubjectID, TopicID: d.TopicID, Arg: viewDue}.String(),
		}})
	}
	rows = append(rows, []MenuButton{{Text: "⬅️ Menu", CallbackData: menuData("menu")}})
	return createKeyboard(rows)
}

// activityLine renders one day of the weekly activity
func activityLine(label string, value int) string {
	bar := "□"
	if value > 0 {
		bar = "■"
	}
	return fmt.Sprintf("%-6s %s", label, bar)
}

func formatStats(d stats.Dashboard) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📊 Statistics for %s\n\n", d.Today)
	fmt.Fprintf(&text, "🔥 Streak: %d day(s)\n", d.Streak)
	fmt.Fprintf(&text, "✅ Completion: %d%%\n", d.CompletionPercent)
	fmt.Fprintf(&text, "📅 Active days: %d\n", d.ActiveDays)
	fmt.Fprintf(&text, "🔔 Due today: %d\n\n", len(d.Due))
	text.WriteString("This week:\n")
	for i, label := range d.Activity.Labels {
		text.WriteString(activityLine(label, d.Activity.Values[i]))
		text.WriteString("\n")
	}
	if len(d.Subjects) > 0 {
		text.WriteString("\nSubjects:\n")
		for _, s := range d.Subjects {
			fmt.Fprintf(&text, "%s: %d%%\n", s.Name, s.Percent)
		}
	}
	return strings.TrimRight(text.String(), "\n")
}

func formatSettings(p models.PomodoroSettings, r models.ReminderSettings) string {
	reminders := "off"
	if r.Enabled {
		reminders = "on"
	}
	return fmt.Sprintf("⚙️ Settings\n\n"+
		"⏱ Focus: %d min work / %d min break\n"+
		"🔔 Reminders: %s at %02d:00\n\n"+
		"Change with /settings <work> <break> and /remind on|off|<hour>.",
		p.WorkMinutes, p.BreakMinutes, reminders, r.Hour)
}

func formatFocus(s focus.State) string {
	status := "paused"
	if s.Running {
		status = "running"
	}
	return fmt.Sprintf("⏱ %s\n%s · %s", s.Phase.Status(), s.Clock(), status)
}

func formatImportResult(r *excel.ImportResult) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📥 Import finished\n\nRows processed: %d\nSubjects created: %d\nTopics created: %d\nSkipped duplicates: %d",
		r.Processed, r.SubjectsCreated, r.TopicsCreated, r.Skipped)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&text, "\n\n⚠️ %d error(s):", len(r.Errors))
		for i, e := range r.Errors {
			if i == 10 {
				fmt.Fprintf(&text, "\n... and %d more", len(r.Errors)-i)
				break
			}
			text.WriteString("\n" + e)
		}
	}
	return text.String()
}
