package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/planet-dev/planet/internal/tui"
)

// UploadSelectedMsg is sent when a PDF has been picked.
type UploadSelectedMsg struct {
	Path string
}

// CloseOverlayMsg is sent when an overlay is dismissed.
type CloseOverlayMsg struct{}

// UploadModel is the file picker overlay for choosing a PDF to upload.
type UploadModel struct {
	picker filepicker.Model
	notice string
	width  int
	height int
}

// NewUploadModel creates a picker rooted at dir that only offers PDFs.
func NewUploadModel(dir string, width, height int) UploadModel {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".pdf"}
	fp.CurrentDirectory = dir
	fp.ShowHidden = false

	m := UploadModel{picker: fp}
	m.resize(width, height)
	return m
}

// Init reads the starting directory.
func (m UploadModel) Init() tea.Cmd {
	return m.picker.Init()
}

// Update handles messages for the upload overlay.
func (m UploadModel) Update(msg tea.Msg) (UploadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, tui.DefaultKeyMap.Back) {
			return m, func() tea.Msg { return CloseOverlayMsg{} }
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		return m, func() tea.Msg { return UploadSelectedMsg{Path: path} }
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = path + " is not a PDF"
		return m, cmd
	}
	return m, cmd
}

func (m *UploadModel) resize(width, height int) {
	m.width = width
	m.height = height
	h := height - 10
	if h < 5 {
		h = 5
	}
	m.picker.Height = h
}

// View renders the upload overlay.
func (m UploadModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("Upload a PDF"))
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render(m.picker.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.picker.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(tui.ErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(tui.DimStyle.Render("Enter: Select · Esc: Back"))

	return tui.BoxStyle.
		Width(m.width - 4).
		Render(b.String())
}
