// Package views provides the view components of the planet TUI. Views
// render session snapshots and turn key presses into intents; they never
// hold session state of their own beyond the last snapshot.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/tui"
)

// SendQuestionMsg is sent when the user submits the input.
type SendQuestionMsg struct {
	Text string
}

// ChatModel is the view model for the conversation screen.
type ChatModel struct {
	snap     session.Snapshot
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	renderer *Renderer

	banner       string
	ctrlCPending bool
	width        int
	height       int
}

// NewChatModel creates a ChatModel showing snap.
func NewChatModel(snap session.Snapshot, renderer *Renderer, width, height int) ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about your document... (Enter to send)"
	ta.CharLimit = 5000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Enter submits; Shift+Enter or Ctrl+J inserts a newline.
	keyMap := ta.KeyMap
	keyMap.InsertNewline = tui.DefaultKeyMap.NewLine
	ta.KeyMap = keyMap
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))

	m := ChatModel{
		textarea: ta,
		viewport: viewport.New(20, 5),
		spinner:  sp,
		help:     help.New(),
		renderer: renderer,
	}
	m.resize(width, height)
	m.SetSnapshot(snap)
	return m
}

// Init returns the initial command for the chat view.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// SetSnapshot replaces the rendered state. Input is disabled while either
// operation is in flight. The returned command restarts the spinner when
// an operation has just started.
func (m *ChatModel) SetSnapshot(snap session.Snapshot) tea.Cmd {
	wasBusy := m.snap.Busy()
	grew := len(snap.Messages) != len(m.snap.Messages)
	m.snap = snap

	if grew || m.viewport.TotalLineCount() == 0 {
		m.viewport.SetContent(m.renderer.Messages(snap.Messages))
		m.viewport.GotoBottom()
	}

	if snap.Busy() {
		m.textarea.Blur()
		if !wasBusy {
			return m.spinner.Tick
		}
		return nil
	}
	return m.textarea.Focus()
}

// Snapshot returns the state currently shown.
func (m ChatModel) Snapshot() session.Snapshot {
	return m.snap
}

// Value returns the text being composed.
func (m ChatModel) Value() string {
	return m.textarea.Value()
}

// ResetInput clears the input after a question was accepted.
func (m *ChatModel) ResetInput() {
	m.textarea.Reset()
}

// SetError shows text in the error banner.
func (m *ChatModel) SetError(text string) {
	m.banner = text
}

// ClearError hides the error banner.
func (m *ChatModel) ClearError() {
	m.banner = ""
}

// Banner returns the error banner text, if any.
func (m ChatModel) Banner() string {
	return m.banner
}

// SetCtrlCPending toggles the exit confirmation hint.
func (m *ChatModel) SetCtrlCPending(pending bool) {
	m.ctrlCPending = pending
}

// Update handles messages for the chat view.
func (m ChatModel) Update(msg tea.Msg) (ChatModel, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Send):
			if m.snap.Busy() {
				return m, nil
			}
			text := m.textarea.Value()
			return m, func() tea.Msg {
				return SendQuestionMsg{Text: text}
			}

		case key.Matches(msg, tui.DefaultKeyMap.Up), key.Matches(msg, tui.DefaultKeyMap.Down):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if m.snap.Busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.viewport.SetContent(m.renderer.Messages(m.snap.Messages))
		m.viewport.GotoBottom()
		return m, nil
	}

	if !m.snap.Busy() {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height

	// Reserve space for: header (2 lines), status (2 lines), textarea (4 lines), footer (2 lines), box (4 lines)
	vpHeight := height - 14
	if vpHeight < 5 {
		vpHeight = 5
	}
	vpWidth := width - 8
	if vpWidth < 20 {
		vpWidth = 20
	}

	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.textarea.SetWidth(vpWidth)
	m.help.Width = vpWidth
	m.renderer.SetWidth(vpWidth)
}

// View renders the chat view.
func (m ChatModel) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	switch {
	case m.banner != "":
		b.WriteString(tui.BannerStyle.Render(m.banner))
	case m.snap.Upload == session.StatusInFlight:
		b.WriteString(fmt.Sprintf("%s Uploading...", m.spinner.View()))
	case m.snap.Ask == session.StatusInFlight:
		b.WriteString(fmt.Sprintf("%s Thinking...", m.spinner.View()))
	}
	b.WriteString("\n")

	if m.snap.Busy() {
		b.WriteString(tui.DimStyle.Render(m.textarea.View()))
	} else {
		b.WriteString(m.textarea.View())
	}
	b.WriteString("\n\n")

	if m.ctrlCPending {
		b.WriteString(tui.WarningStyle.Render("Press Ctrl+C again to exit"))
	} else {
		b.WriteString(m.help.View(tui.DefaultKeyMap))
	}

	return tui.BoxStyle.
		Width(m.width - 4).
		Render(b.String())
}

func (m ChatModel) header() string {
	title := tui.TitleStyle.Render("Planet")

	doc := tui.IconUnbound + " " + tui.DimStyle.Render("no document")
	if m.snap.Bound() {
		doc = tui.StatusIcon(m.snap.Upload) + " " + m.snap.Binding
	} else if m.snap.Upload != session.StatusIdle {
		doc = tui.StatusIcon(m.snap.Upload) + " " + tui.DimStyle.Render("no document")
	}

	return fmt.Sprintf("%s  %s", title, doc)
}
