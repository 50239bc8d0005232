package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/tui"
)

// RefreshDocumentsMsg asks for a fresh listing from the server.
type RefreshDocumentsMsg struct{}

// DocumentsModel lists the documents the server holds. The bound document
// is highlighted.
type DocumentsModel struct {
	docs    []remote.DocumentInfo
	err     error
	loading bool
	bound   string
	spinner spinner.Model
	width   int
	height  int
}

// NewDocumentsModel creates the overlay in its loading state.
func NewDocumentsModel(bound string, width, height int) DocumentsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return DocumentsModel{
		loading: true,
		bound:   bound,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init starts the loading spinner.
func (m DocumentsModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the documents overlay.
func (m DocumentsModel) Update(msg tea.Msg) (DocumentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tui.DefaultKeyMap.Back):
			return m, func() tea.Msg { return CloseOverlayMsg{} }
		case key.Matches(msg, tui.DefaultKeyMap.Refresh):
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return RefreshDocumentsMsg{} })
		}

	case tui.DocumentsLoadedMsg:
		m.loading = false
		m.docs = msg.Documents
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the documents overlay.
func (m DocumentsModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("Documents on server"))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(fmt.Sprintf("%s Loading...", m.spinner.View()))
	case m.err != nil:
		b.WriteString(tui.ErrorStyle.Render(m.err.Error()))
	case len(m.docs) == 0:
		b.WriteString(tui.DimStyle.Render("No documents uploaded yet."))
	default:
		for i, d := range m.docs {
			line := fmt.Sprintf("%3d  %s", d.ID, d.Filename)
			if d.Filename == m.bound {
				line = tui.SelectedStyle.Render(line + "  (bound)")
			}
			b.WriteString(line)
			if i < len(m.docs)-1 {
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n\n")
	b.WriteString(tui.DimStyle.Render("r: Refresh · Esc: Back"))

	return tui.BoxStyle.
		Width(m.width - 4).
		Render(b.String())
}
