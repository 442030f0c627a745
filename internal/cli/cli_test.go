package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/revtrack/internal/config"
	"github.com/example/revtrack/internal/database"
	"github.com/example/revtrack/internal/tracker"
)

var today = time.Date(2024, 6, 10, 14, 0, 0, 0, time.Local)

type harness struct {
	t   *testing.T
	app *App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{Theme: "light"}
	app := NewApp(cfg, db, slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracker.WithClock(func() time.Time { return today }))
	app.Confirm = tracker.ConfirmFunc(func(context.Context, string) (bool, error) {
		t.Fatal("unexpected confirmation prompt")
		return false, nil
	})
	app.TickInterval = time.Millisecond
	return &harness{t: t, app: app}
}

func (h *harness) run(args ...string) (stdout, stderr string, code int) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	code = Run(context.Background(), h.app, NewIO(&out, &errOut), args)
	return out.String(), errOut.String(), code
}

// mustRun runs a command that has to succeed and returns its stdout
func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	stdout, stderr, code := h.run(args...)
	require.Equal(h.t, 0, code, "stderr: %s", stderr)
	return stdout
}

func (h *harness) addSubject(name string) string {
	h.t.Helper()
	return strings.TrimSpace(h.mustRun("add-subject", name))
}

func (h *harness) addTopic(subjectID, name, date string) string {
	h.t.Helper()
	out := h.mustRun("add-topic", subjectID, name, "--date", date)
	id, _, _ := strings.Cut(out, " ")
	return id
}

func TestUsage(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run()

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "revtrack - spaced repetition study tracker")
	assert.Contains(t, stdout, "add-topic <subject-id> <name> [flags]")
	assert.Contains(t, stdout, "delete-subject")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("frobnicate")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command: frobnicate")
}

func TestCommandHelp(t *testing.T) {
	h := newHarness(t)

	stdout, _, code := h.run("add-topic", "--help")

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage: revtrack add-topic")
	assert.Contains(t, stdout, "--date")
}

func TestUnknownFlag(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("subjects", "--bogus")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown flag: --bogus")
}

func TestAddListReviseComplete(t *testing.T) {
	h := newHarness(t)

	subjectID := h.addSubject("Maths")
	_, err := strconv.ParseInt(subjectID, 10, 64)
	require.NoError(t, err, "add-subject prints the id")

	out := h.mustRun("add-topic", subjectID, "Linear", "algebra", "--date", "2024-06-01")
	assert.Contains(t, out, "next 2024-06-02")
	topicID, _, _ := strings.Cut(out, " ")

	out = h.mustRun("subjects")
	assert.Contains(t, out, "] Maths")
	assert.Contains(t, out, "Linear algebra  level 0  last 2024-06-01  next 2024-06-02  due")

	out = h.mustRun("revise", subjectID, topicID)
	assert.Equal(t, "Revised Linear algebra: level 1, next revision 2024-06-13\n", out)

	out = h.mustRun("subjects", "--due")
	assert.NotContains(t, out, "Linear algebra")

	out = h.mustRun("complete", subjectID, topicID, "--undo")
	assert.Equal(t, "Linear algebra is not complete\n", out)

	out = h.mustRun("complete", subjectID, topicID)
	assert.Equal(t, "Linear algebra is complete\n", out)
}

func TestAddTopicDefaultsToToday(t *testing.T) {
	h := newHarness(t)
	subjectID := h.addSubject("Maths")

	out := h.mustRun("add-topic", subjectID, "Integrals")

	assert.Contains(t, out, "next 2024-06-11")
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t)
	subjectID := h.addSubject("Maths")

	_, stderr, code := h.run("add-topic", subjectID, "Integrals", "--date", "10/06/2024")
	assert.Equal(t, 1, code)
	assert.Equal(t, "error: lastRevised: date must be YYYY-MM-DD\n", stderr)

	_, stderr, code = h.run("revise", subjectID)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, errIDsRequired.Error())

	_, stderr, code = h.run("revise", subjectID, "12345")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not found")

	_, stderr, code = h.run("add-subject", "  ")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, errNameRequired.Error())
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	subjectID := h.addSubject("Maths")
	topicID := h.addTopic(subjectID, "Algebra", "2024-06-01")
	h.addTopic(subjectID, "Geometry", "2024-06-01")
	h.mustRun("revise", subjectID, topicID)

	out := h.mustRun("dashboard")

	assert.Contains(t, out, "Study dashboard for 2024-06-10")
	assert.Contains(t, out, "Completion:   50%")
	assert.Contains(t, out, "Streak:       1 day(s)")
	assert.Contains(t, out, "Due today:    1")
	assert.Contains(t, out, "Today  ■")
	assert.Contains(t, out, "Maths / Geometry (since 2024-06-02)")
}

func TestDeleteSubjectAsks(t *testing.T) {
	h := newHarness(t)
	subjectID := h.addSubject("Maths")

	var prompts []string
	h.app.Confirm = tracker.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return false, nil
	})

	_, stderr, code := h.run("delete-subject", subjectID)
	assert.Equal(t, 1, code)
	assert.Equal(t, "error: cancelled\n", stderr)
	assert.Equal(t, []string{`Are you sure you want to delete "Maths" and all its topics?`}, prompts)
	assert.Contains(t, h.mustRun("subjects"), "Maths")

	assert.Equal(t, "Deleted.\n", h.mustRun("delete-subject", subjectID, "--yes"))
	assert.Len(t, prompts, 1, "--yes skips the prompt")
	assert.Contains(t, h.mustRun("subjects"), "No subjects yet")
}

func TestDeleteTopic(t *testing.T) {
	h := newHarness(t)
	subjectID := h.addSubject("Maths")
	topicID := h.addTopic(subjectID, "Algebra", "2024-06-01")

	h.app.Confirm = tracker.AlwaysConfirm
	assert.Equal(t, "Deleted.\n", h.mustRun("delete-topic", subjectID, topicID))
	assert.NotContains(t, h.mustRun("subjects"), "Algebra")
}

func TestSettings(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("settings")
	assert.Equal(t, "Focus:     25 min work / 5 min break\nReminders: off at 09:00\n", out)

	out = h.mustRun("settings", "--work", "50", "--reminders", "on", "--hour", "20")
	assert.Equal(t, "Focus:     50 min work / 5 min break\nReminders: on at 20:00\n", out)

	_, stderr, code := h.run("settings", "--hour", "24")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "hour")

	_, stderr, code = h.run("settings", "--reminders", "maybe")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--reminders must be on or off")
}

func TestFocusRunsOneSession(t *testing.T) {
	h := newHarness(t)
	h.mustRun("settings", "--work", "1", "--break", "1")

	out := h.mustRun("focus", "--quiet")

	assert.Contains(t, out, "Time to Work! 01:00")
	assert.Contains(t, out, "Time for a Break! 01:00")
	assert.Contains(t, out, "Finished 1 session(s).")
}

func TestFocusStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.app.TickInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	code := Run(ctx, h.app, NewIO(&out, io.Discard), []string{"focus"})

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Stopped with 25:00 left.")
}

func TestImportAndExport(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "topics.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Subject,Topic,LastRevised\nMaths,Algebra,2024-06-01\nmaths,Algebra,\nPhysics,Optics,\n"), 0o644))

	var out, errOut bytes.Buffer
	code := Run(context.Background(), h.app, NewIO(&out, &errOut), []string{"import", csvPath})
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "Subjects created: 2")
	assert.Contains(t, out.String(), "Topics created:   2")
	assert.Contains(t, out.String(), "Skipped:          1")

	report := filepath.Join(dir, "report.xlsx")
	assert.Equal(t, "Report written to "+report+"\n", h.mustRun("export", report, "--theme", "dark"))
	info, err := os.Stat(report)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, stderr, code := h.run("export", filepath.Join(dir, "report.txt"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, ".xlsx")

	_, stderr, code = h.run("export", report, "--theme", "neon")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown theme")
}

func TestBackupAndRestore(t *testing.T) {
	src := newHarness(t)
	subjectID := src.addSubject("Maths")
	topicID := src.addTopic(subjectID, "Algebra", "2024-06-01")
	src.mustRun("revise", subjectID, topicID)
	src.mustRun("settings", "--work", "40")

	path := filepath.Join(t.TempDir(), "backup.json")
	assert.Equal(t, "Backed up 1 subject(s) and 1 active day(s) to "+path+"\n", src.mustRun("backup", path))

	dst := newHarness(t)
	out := dst.mustRun("restore", path, "--yes")
	assert.Equal(t, "Restored 1 subject(s), 1 topic(s), 1 setting(s), 1 active day(s)\n", out)

	assert.Equal(t, src.mustRun("subjects"), dst.mustRun("subjects"))
	assert.Contains(t, dst.mustRun("settings"), "40 min work")
	assert.Contains(t, dst.mustRun("dashboard"), "Streak:       1 day(s)")
}

func TestRestoreDeclined(t *testing.T) {
	h := newHarness(t)
	h.app.Confirm = tracker.ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })

	out := h.mustRun("restore", filepath.Join(t.TempDir(), "missing.json"))

	assert.Equal(t, "Cancelled.\n", out)
}

func TestBotNeedsCredentials(t *testing.T) {
	h := newHarness(t)

	_, stderr, code := h.run("bot")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, config.ErrBotNotConfigured.Error())
}

func TestTrackerDayFollowsReminderZone(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := NewApp(&config.Config{Reminder: config.ReminderConfig{Timezone: "UTC"}}, db, log)
	assert.Equal(t, time.UTC, app.Location)
	assert.Equal(t, time.UTC, app.Tracker.Today().Location())

	app = NewApp(&config.Config{Reminder: config.ReminderConfig{Timezone: "Mars/Olympus"}}, db, log)
	assert.Equal(t, time.Local, app.Location)
}
