// Package tui provides the full-screen build view for interactive terminals.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/output"
)

// NewModel creates a new TUI model with default settings.
func NewModel(w io.Writer) Model {
	if w == nil {
		w = os.Stderr
	}

	out := output.New(w)
	lipgloss.SetColorProfile(out.Profile)

	return Model{
		Tasks:      make([]*TaskNode, 0),
		TaskMap:    make(map[string]*TaskNode),
		SpanMap:    make(map[string]*TaskNode),
		Output:     out,
		AutoScroll: true,
		FollowMode: true,
	}
}

// WithInterrupt returns a copy of the model that calls interrupt when the user presses ctrl+c.
// The terminal is in raw mode while the view is shown, so no SIGINT reaches the process.
//
//nolint:gocritic // hugeParam ignored
func (m Model) WithInterrupt(interrupt func()) Model {
	m.interrupt = interrupt
	return m
}
