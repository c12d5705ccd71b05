package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// SubmitFunc feeds one line of text into the pipeline and returns the
// user-facing reply, the same text a channel user would see.
type SubmitFunc func(ctx context.Context, text string) (string, error)

// RuntimeInfo is shown in the console header.
type RuntimeInfo struct {
	ParserModel      string
	TranscriberModel string
	TaskAPI          string
}

// Run starts the interactive console and blocks until the user exits.
func Run(ctx context.Context, submit SubmitFunc, info RuntimeInfo) error {
	program := tea.NewProgram(newModel(ctx, submit, info))
	_, err := program.Run()
	return err
}
