package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/revtrack/internal/database"
	"github.com/example/revtrack/internal/focus"
	"github.com/example/revtrack/internal/tracker"
	"github.com/example/revtrack/pkg/models"
)

const ownerID = 42

var today = time.Date(2024, 6, 10, 9, 30, 0, 0, time.Local)

// fakeAPI records everything the bot sends
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	fileURL  string
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

// texts returns the text of every message and edit sent so far
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *tracker.Service) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := tracker.New(
		database.NewSubjectRepository(db),
		database.NewStatsRepository(db),
		database.NewSettingsRepository(db),
		tracker.WithClock(func() time.Time { return today }),
		tracker.WithLogger(log),
	)

	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	config := DefaultConfig()
	config.OwnerID = ownerID
	b := newBot(api, config, svc, log)
	t.Cleanup(b.timer.Pause)
	return b, api, svc
}

func command(from int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func press(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: ownerID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: ownerID},
		},
	}}
}

func addSubjectWithTopic(t *testing.T, svc *tracker.Service, subject, topic, lastRevised string) (models.Subject, models.Topic) {
	t.Helper()
	ctx := context.Background()
	s, err := svc.AddSubject(ctx, subject)
	require.NoError(t, err)
	tp, err := svc.AddTopic(ctx, s.ID, topic, lastRevised)
	require.NoError(t, err)
	return s, tp
}

func TestStrangerIsRejected(t *testing.T) {
	b, api, svc := newTestBot(t)

	b.handleUpdate(context.Background(), command(7, "/addsubject Maths"))

	assert.Equal(t, []string{"Sorry, this bot is private."}, api.texts())
	subjects, err := svc.Subjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestAddSubjectAndTopicCommands(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)

	b.handleUpdate(ctx, command(ownerID, "/addsubject Linear Algebra"))
	b.handleUpdate(ctx, command(ownerID, "/addtopic 1 Eigen values 2024-06-01"))

	subjects, err := svc.Subjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Linear Algebra", subjects[0].Name)
	require.Len(t, subjects[0].Topics, 1)
	topic := subjects[0].Topics[0]
	assert.Equal(t, "Eigen values", topic.Name)
	assert.Equal(t, "2024-06-01", topic.LastRevised)
	assert.Equal(t, "2024-06-02", topic.NextRevisionDate)

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Next revision: 2024-06-02")
}

func TestAddTopicDefaultsToToday(t *testing.T) {
	ctx := context.Background()
	b, _, svc := newTestBot(t)
	_, err := svc.AddSubject(ctx, "Maths")
	require.NoError(t, err)

	b.handleUpdate(ctx, command(ownerID, "/addtopic 1 Integrals"))

	subjects, err := svc.Subjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects[0].Topics, 1)
	assert.Equal(t, "2024-06-10", subjects[0].Topics[0].LastRevised)
}

func TestAddTopicUnknownSubjectNumber(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleUpdate(context.Background(), command(ownerID, "/addtopic 3 Integrals"))

	assert.Equal(t, []string{"There is no subject number 3, see /subjects."}, api.texts())
}

func TestValidationErrorsAreShown(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleUpdate(context.Background(), command(ownerID, "/addsubject"))
	b.handleUpdate(context.Background(), command(ownerID, "/addtopic x y"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Usage: /addsubject <name>", texts[0])
	assert.Contains(t, texts[1], "positive number")
}

func TestSubjectsCommand(t *testing.T) {
	b, api, svc := newTestBot(t)
	addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(context.Background(), command(ownerID, "/subjects"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "1 subject(s)")
	assert.Contains(t, texts[1], "1. 📚 Maths · 0% complete")
	assert.Contains(t, texts[1], "Algebra · level 0 · next 2024-06-02 🔔")

	msg, ok := api.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, keyboard.InlineKeyboard, 2, "one row per topic and a delete row")
}

func TestReviseFromDueList(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	s, tp := addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(ctx, command(ownerID, "/due"))
	assert.Contains(t, api.texts()[0], "1 topic(s) to revise")

	api.reset()
	b.handleUpdate(ctx, press(fmt.Sprintf("revise:%d:%d:due", s.ID, tp.ID)))

	edit, ok := api.last().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	assert.Equal(t, "🎉 Nothing to revise today.", edit.Text)

	subject, err := svc.Subject(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, subject.Topics[0].RevisionLevel)
	assert.Equal(t, "2024-06-13", subject.Topics[0].NextRevisionDate)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Streak)
}

func TestToggleComplete(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	s, tp := addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(ctx, press(fmt.Sprintf("toggle:%d:%d", s.ID, tp.ID)))

	subject, err := svc.Subject(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, subject.Topics[0].IsComplete)
	edit, ok := api.last().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Contains(t, edit.Text, "100% complete")

	b.handleUpdate(ctx, press(fmt.Sprintf("toggle:%d:%d", s.ID, tp.ID)))
	subject, err = svc.Subject(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, subject.Topics[0].IsComplete)
}

func TestDeleteSubjectNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	s, _ := addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(ctx, press(fmt.Sprintf("delsubject:%d", s.ID)))
	assert.Equal(t, []string{`❓ Are you sure you want to delete "Maths" and all its topics?`}, api.texts())

	b.handleUpdate(ctx, press("cancel:1"))
	_, err := svc.Subject(ctx, s.ID)
	require.NoError(t, err, "cancel keeps the subject")

	api.reset()
	b.handleUpdate(ctx, press(fmt.Sprintf("delsubject:%d", s.ID)))
	b.handleUpdate(ctx, press("confirm:2"))

	_, err = svc.Subject(ctx, s.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, api.texts()[1], "Deleted")

	// the token is single use
	api.reset()
	b.handleUpdate(ctx, press("confirm:2"))
	assert.Empty(t, api.texts())
}

func TestDeleteTopicNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	s, tp := addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(ctx, press(fmt.Sprintf("deltopic:%d:%d", s.ID, tp.ID)))
	assert.Equal(t, []string{"❓ Are you sure you want to delete this topic?"}, api.texts())

	b.handleUpdate(ctx, press("confirm:1"))

	subject, err := svc.Subject(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, subject.Topics)
}

func TestDeleteMissingTopicReportsNotFound(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	s, _ := addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(ctx, press(fmt.Sprintf("deltopic:%d:%d", s.ID, 999)))

	assert.Equal(t, []string{"⚠️ Not found. It may have been deleted already."}, api.texts())
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleUpdate(context.Background(), press("bogus:1"))

	assert.Empty(t, api.texts())
	require.Len(t, api.requests, 1)
	cb, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "⚠️ Unknown action", cb.Text)
}

func TestSettingsCommandReconfiguresTimer(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)

	b.handleUpdate(ctx, command(ownerID, "/settings 50 10"))

	p, err := svc.Pomodoro(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PomodoroSettings{WorkMinutes: 50, BreakMinutes: 10}, p)
	assert.Equal(t, 50*time.Minute, b.timer.State().Remaining)
	assert.Contains(t, api.texts()[0], "50 min work / 10 min break")

	api.reset()
	b.handleUpdate(ctx, command(ownerID, "/settings 0 10"))
	assert.Contains(t, api.texts()[0], "⚠️")
}

func TestFocusCommands(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	b.handleUpdate(ctx, command(ownerID, "/focus start"))
	assert.True(t, b.timer.State().Running)
	assert.Contains(t, api.texts()[0], "Time to Work!")

	b.handleUpdate(ctx, command(ownerID, "/focus start"))
	assert.Contains(t, api.texts()[1], "already running")

	b.handleUpdate(ctx, press("focus:pause"))
	assert.False(t, b.timer.State().Running)

	b.handleUpdate(ctx, command(ownerID, "/focus reset"))
	assert.Equal(t, 25*time.Minute, b.timer.State().Remaining)
}

func TestFocusAlarmMessage(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.focusAlarm(focus.Break)

	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Time for a Break!")
}

func TestRemindersNeedPermission(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)

	assert.ErrorIs(t, b.Show(ctx, "Revisions Due!", "You have 1 topic(s) to revise today."), errNotPermitted)

	b.handleUpdate(ctx, command(ownerID, "/remind on"))
	r, err := svc.Reminders(ctx)
	require.NoError(t, err)
	assert.True(t, r.Enabled)
	assert.Equal(t, []string{"🔔 Reminders Enabled!\nYou will now receive daily reminders."}, api.texts())

	require.NoError(t, b.Show(ctx, "Revisions Due!", "You have 1 topic(s) to revise today."))
	msg, ok := api.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(ownerID), msg.ChatID)

	b.handleUpdate(ctx, command(ownerID, "/remind 20"))
	r, err = svc.Reminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderSettings{Enabled: true, Hour: 20}, r)

	b.handleUpdate(ctx, command(ownerID, "/remind off"))
	assert.ErrorIs(t, b.Show(ctx, "x", "y"), errNotPermitted)
}

func TestStartLoadsSettings(t *testing.T) {
	ctx := context.Background()
	b, api, svc := newTestBot(t)
	_, err := svc.SavePomodoro(ctx, 40, 8)
	require.NoError(t, err)
	_, err = svc.SaveReminders(ctx, true, 7)
	require.NoError(t, err)

	close(api.updates)
	require.NoError(t, b.Start(ctx))

	assert.Equal(t, 40*time.Minute, b.timer.State().Remaining)
	assert.True(t, b.isPermitted())
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Start(ctx))
	assert.True(t, api.stopped)
}

func TestExportSendsWorkbook(t *testing.T) {
	b, api, svc := newTestBot(t)
	addSubjectWithTopic(t, svc, "Maths", "Algebra", "2024-06-01")

	b.handleUpdate(context.Background(), command(ownerID, "/export"))

	doc, ok := api.last().(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "dashboard-2024-06-10.xlsx", file.Name)
	assert.NotEmpty(t, file.Bytes)
}

func TestDocumentImport(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "Subject,Topic,LastRevised\nMaths,Algebra,2024-06-01\nMaths,Geometry,not-a-date\n")
	}))
	defer srv.Close()

	b, api, svc := newTestBot(t)
	api.fileURL = srv.URL + "/topics.csv"

	b.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: ownerID},
		Chat:     &tgbotapi.Chat{ID: ownerID},
		Document: &tgbotapi.Document{FileID: "f1", FileName: "topics.csv", FileSize: 100},
	}})

	subjects, err := svc.Subjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	require.Len(t, subjects[0].Topics, 1)
	assert.Equal(t, "Algebra", subjects[0].Topics[0].Name)

	text := api.texts()[0]
	assert.Contains(t, text, "Topics created: 1")
	assert.Contains(t, text, "1 error(s)")
}

func TestDocumentWithWrongExtension(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: ownerID},
		Chat:     &tgbotapi.Chat{ID: ownerID},
		Document: &tgbotapi.Document{FileID: "f1", FileName: "notes.pdf"},
	}})

	assert.Contains(t, api.texts()[0], ".xlsx or .csv")
}
