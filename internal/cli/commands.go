package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/example/revtrack/internal/dates"
	"github.com/example/revtrack/internal/spaced_repetition"
)

var (
	errNameRequired = errors.New("name is required")
	errIDsRequired  = errors.New("subject id and topic id are required")
	errIDRequired   = errors.New("subject id is required")
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) (subjectID, topicID int64, err error) {
	if len(args) != 2 {
		return 0, 0, errIDsRequired
	}
	if subjectID, err = parseID(args[0]); err != nil {
		return 0, 0, err
	}
	if topicID, err = parseID(args[1]); err != nil {
		return 0, 0, err
	}
	return subjectID, topicID, nil
}

func (a *App) dashboardCmd() *Command {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "dashboard",
		Short: "Show streak, completion, weekly activity and due topics",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			dash, err := a.Tracker.Dashboard(ctx)
			if err != nil {
				return err
			}

			o.Printf("Study dashboard for %s\n\n", dash.Today)
			o.Printf("%-13s %d%%\n", "Completion:", dash.CompletionPercent)
			o.Printf("%-13s %d day(s)\n", "Streak:", dash.Streak)
			o.Printf("%-13s %d\n", "Active days:", dash.ActiveDays)
			o.Printf("%-13s %d\n", "Due today:", len(dash.Due))

			o.Println()
			o.Println("This week:")
			for i, label := range dash.Activity.Labels {
				mark := "□"
				if dash.Activity.Values[i] > 0 {
					mark = "■"
				}
				o.Printf("  %-6s %s\n", label, mark)
			}

			if len(dash.Subjects) > 0 {
				o.Println()
				o.Println("Subjects:")
				for _, s := range dash.Subjects {
					o.Printf("  %-24s %3d%%\n", s.Name, s.Percent)
				}
			}

			if len(dash.Due) > 0 {
				o.Println()
				o.Println("Due:")
				for _, d := range dash.Due {
					o.Printf("  %s / %s (since %s)  [revise %d %d]\n",
						d.SubjectName, d.TopicName, d.NextRevisionDate, d.SubjectID, d.TopicID)
				}
			}
			return nil
		},
	}
}

func (a *App) subjectsCmd() *Command {
	fs := flag.NewFlagSet("subjects", flag.ContinueOnError)
	fs.Bool("due", false, "Only show topics due today")

	return &Command{
		Flags: fs,
		Usage: "subjects [flags]",
		Short: "List subjects and their topics with ids",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			onlyDue, _ := fs.GetBool("due")

			subjects, err := a.Tracker.Subjects(ctx)
			if err != nil {
				return err
			}
			if len(subjects) == 0 {
				o.Println("No subjects yet. Add one with: revtrack add-subject <name>")
				return nil
			}

			today := a.Tracker.Today()
			for _, s := range subjects {
				o.Printf("[%d] %s\n", s.ID, s.Name)
				for _, t := range s.Topics {
					due := spaced_repetition.IsDue(t, today)
					if onlyDue && !due {
						continue
					}
					mark := " "
					if t.IsComplete {
						mark = "x"
					}
					line := fmt.Sprintf("  [%s] %d %s  level %d  last %s  next %s",
						mark, t.ID, t.Name, t.RevisionLevel, t.LastRevised, t.NextRevisionDate)
					if due {
						line += "  due"
					}
					o.Println(line)
				}
			}
			return nil
		},
	}
}

func (a *App) addSubjectCmd() *Command {
	fs := flag.NewFlagSet("add-subject", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "add-subject <name>",
		Short: "Add a subject, prints its id",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			name := strings.Join(args, " ")
			if strings.TrimSpace(name) == "" {
				return errNameRequired
			}
			subject, err := a.Tracker.AddSubject(ctx, name)
			if err != nil {
				return err
			}
			o.Println(subject.ID)
			return nil
		},
	}
}

func (a *App) addTopicCmd() *Command {
	fs := flag.NewFlagSet("add-topic", flag.ContinueOnError)
	fs.StringP("date", "d", "", "Date of the last revision, YYYY-MM-DD [default: today]")

	return &Command{
		Flags: fs,
		Usage: "add-topic <subject-id> <name> [flags]",
		Short: "Add a topic to a subject, prints its id and next revision",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return errors.New("subject id and topic name are required")
			}
			subjectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			lastRevised, _ := fs.GetString("date")
			if !fs.Changed("date") {
				lastRevised = dates.Format(a.Tracker.Today())
			}

			topic, err := a.Tracker.AddTopic(ctx, subjectID, strings.Join(args[1:], " "), lastRevised)
			if err != nil {
				return err
			}
			o.Printf("%d next %s\n", topic.ID, topic.NextRevisionDate)
			return nil
		},
	}
}

func (a *App) reviseCmd() *Command {
	fs := flag.NewFlagSet("revise", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "revise <subject-id> <topic-id>",
		Short: "Record a revision today and schedule the next one",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			subjectID, topicID, err := parseIDs(args)
			if err != nil {
				return err
			}
			topic, err := a.Tracker.ReviseTopic(ctx, subjectID, topicID)
			if err != nil {
				return err
			}
			o.Printf("Revised %s: level %d, next revision %s\n", topic.Name, topic.RevisionLevel, topic.NextRevisionDate)
			return nil
		},
	}
}

func (a *App) completeCmd() *Command {
	fs := flag.NewFlagSet("complete", flag.ContinueOnError)
	fs.Bool("undo", false, "Mark the topic as not complete")

	return &Command{
		Flags: fs,
		Usage: "complete <subject-id> <topic-id> [flags]",
		Short: "Mark a topic complete",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			subjectID, topicID, err := parseIDs(args)
			if err != nil {
				return err
			}
			undo, _ := fs.GetBool("undo")
			topic, err := a.Tracker.SetTopicComplete(ctx, subjectID, topicID, !undo)
			if err != nil {
				return err
			}
			state := "complete"
			if !topic.IsComplete {
				state = "not complete"
			}
			o.Printf("%s is %s\n", topic.Name, state)
			return nil
		},
	}
}

func (a *App) deleteSubjectCmd() *Command {
	fs := flag.NewFlagSet("delete-subject", flag.ContinueOnError)
	fs.BoolP("yes", "y", false, "Do not ask for confirmation")

	return &Command{
		Flags: fs,
		Usage: "delete-subject <subject-id> [flags]",
		Short: "Delete a subject and all its topics",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errIDRequired
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			yes, _ := fs.GetBool("yes")
			if err := a.Tracker.DeleteSubject(ctx, id, a.confirmer(yes)); err != nil {
				return err
			}
			o.Println("Deleted.")
			return nil
		},
	}
}

func (a *App) deleteTopicCmd() *Command {
	fs := flag.NewFlagSet("delete-topic", flag.ContinueOnError)
	fs.BoolP("yes", "y", false, "Do not ask for confirmation")

	return &Command{
		Flags: fs,
		Usage: "delete-topic <subject-id> <topic-id> [flags]",
		Short: "Delete a topic",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			subjectID, topicID, err := parseIDs(args)
			if err != nil {
				return err
			}
			yes, _ := fs.GetBool("yes")
			if err := a.Tracker.DeleteTopic(ctx, subjectID, topicID, a.confirmer(yes)); err != nil {
				return err
			}
			o.Println("Deleted.")
			return nil
		},
	}
}

func (a *App) settingsCmd() *Command {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.Int("work", 0, "Focus work minutes")
	fs.Int("break", 0, "Focus break minutes")
	fs.String("reminders", "", "Daily reminders: on|off")
	fs.Int("hour", 0, "Hour of the daily reminder, 0-23")

	return &Command{
		Flags: fs,
		Usage: "settings [flags]",
		Short: "Show or change focus and reminder settings",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			pomodoro, err := a.Tracker.Pomodoro(ctx)
			if err != nil {
				return err
			}
			if fs.Changed("work") || fs.Changed("break") {
				work, brk := pomodoro.WorkMinutes, pomodoro.BreakMinutes
				if fs.Changed("work") {
					work, _ = fs.GetInt("work")
				}
				if fs.Changed("break") {
					brk, _ = fs.GetInt("break")
				}
				if pomodoro, err = a.Tracker.SavePomodoro(ctx, work, brk); err != nil {
					return err
				}
			}

			reminders, err := a.Tracker.Reminders(ctx)
			if err != nil {
				return err
			}
			if fs.Changed("reminders") || fs.Changed("hour") {
				enabled, hour := reminders.Enabled, reminders.Hour
				if fs.Changed("reminders") {
					v, _ := fs.GetString("reminders")
					switch strings.ToLower(v) {
					case "on":
						enabled = true
					case "off":
						enabled = false
					default:
						return fmt.Errorf("--reminders must be on or off (got %q)", v)
					}
				}
				if fs.Changed("hour") {
					hour, _ = fs.GetInt("hour")
				}
				if reminders, err = a.Tracker.SaveReminders(ctx, enabled, hour); err != nil {
					return err
				}
			}

			state := "off"
			if reminders.Enabled {
				state = "on"
			}
			o.Printf("Focus:     %d min work / %d min break\n", pomodoro.WorkMinutes, pomodoro.BreakMinutes)
			o.Printf("Reminders: %s at %02d:00\n", state, reminders.Hour)
			return nil
		},
	}
}
