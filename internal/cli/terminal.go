package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
)

// Terminal reads lines with history and line editing.
type Terminal struct {
	line *liner.State
}

func NewTerminal() *Terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &Terminal{line: line}
}

func (t *Terminal) ReadLine(prompt string) (string, error) {
	input, err := t.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrQuit
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		t.line.AppendHistory(input)
	}
	return input, nil
}

func (t *Terminal) Close() error {
	return t.line.Close()
}

// MarkdownRenderer renders replies as terminal markdown, falling back to the
// raw text when glamour cannot.
func MarkdownRenderer(width int) func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(s string) string { return s }
	}

	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}
