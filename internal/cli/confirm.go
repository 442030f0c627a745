package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/example/revtrack/internal/tracker"
)

// linerConfirmer asks on the terminal. Anything but yes/y declines.
type linerConfirmer struct{}

func (linerConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	answer, err := line.Prompt(prompt + " (yes/no): ")
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "yes" || answer == "y", nil
}

func (a *App) confirmer(yes bool) tracker.Confirmer {
	if yes {
		return tracker.AlwaysConfirm
	}
	return a.Confirm
}
