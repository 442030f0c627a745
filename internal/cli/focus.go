package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/example/revtrack/internal/focus"
)

func (a *App) focusCmd() *Command {
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	fs.IntP("sessions", "n", 1, "Work sessions to run before exiting")
	fs.Bool("quiet", false, "Only print phase changes")

	return &Command{
		Flags: fs,
		Usage: "focus [flags]",
		Short: "Run the focus timer in the terminal",
		Long: `Run the focus timer in the terminal using the stored durations.

Each work phase is followed by a break. The command exits once the
requested number of work sessions is done or on Ctrl+C.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sessions, _ := fs.GetInt("sessions")
			quiet, _ := fs.GetBool("quiet")
			if sessions < 1 {
				return errors.New("--sessions must be at least 1")
			}

			p, err := a.Tracker.Pomodoro(ctx)
			if err != nil {
				return err
			}

			// All output happens here; the timer goroutine only signals.
			alarms := make(chan focus.Phase, 1)
			ticks := make(chan focus.State, 1)
			timer := focus.NewTimerFromSettings(p,
				focus.WithInterval(a.TickInterval),
				focus.WithAlarm(func(next focus.Phase) {
					select {
					case alarms <- next:
					default:
					}
				}),
				focus.WithTick(func(s focus.State) {
					select {
					case ticks <- s:
					default:
					}
				}),
			)
			defer timer.Pause()

			state := timer.State()
			o.Printf("%s %s\n", state.Phase.Status(), state.Clock())
			timer.Start()

			done := 0
			for {
				select {
				case <-ctx.Done():
					timer.Pause()
					o.Printf("\nStopped with %s left.\n", timer.State().Clock())
					return nil
				case s := <-ticks:
					if !quiet {
						o.Printf("\r%-5s %s", s.Phase, s.Clock())
					}
				case next := <-alarms:
					o.Printf("\a\n%s %s\n", next.Status(), timer.State().Clock())
					if next == focus.Break {
						done++
						if done >= sessions {
							o.Printf("Finished %d session(s).\n", done)
							return nil
						}
					}
					timer.Start()
				}
			}
		},
	}
}
