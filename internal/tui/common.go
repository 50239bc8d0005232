// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC  = "ctrl+c"
	KeyCtrlJ  = "ctrl+j"
	KeyEnter  = "enter"
	KeyEsc    = "esc"
	KeyCtrlU  = "ctrl+u"
	KeyCtrlD  = "ctrl+d"
	KeyPgUp   = "pgup"
	KeyPgDown = "pgdown"
)

// IsTTY returns true if both stdin and stdout are connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// NewProgram creates the program for m in alternate screen mode. The caller
// runs it; having the program lets background goroutines Send to it.
func NewProgram(m tea.Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(m, opts...)
}
