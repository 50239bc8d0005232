package views

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/tui"
)

func newChat(snap session.Snapshot) ChatModel {
	return NewChatModel(snap, NewRenderer(false, 80), 100, 40)
}

func TestChatShowsMessagesAndBinding(t *testing.T) {
	m := newChat(session.Snapshot{
		Messages: []session.Message{
			{Role: session.RoleUser, Text: "explain like im 5"},
			{Role: session.RoleAssistant, Text: "It is a model."},
		},
		Binding: "demo.pdf",
	})

	view := m.View()
	assert.Contains(t, view, "You: explain like im 5")
	assert.Contains(t, view, "Planet: It is a model.")
	assert.Contains(t, view, "demo.pdf")
}

func TestChatEmptyLogHint(t *testing.T) {
	m := newChat(session.Snapshot{})
	assert.Contains(t, m.View(), "No messages yet")
	assert.Contains(t, m.View(), "no document")
}

func TestChatEnterSendsInput(t *testing.T) {
	m := newChat(session.Snapshot{})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	assert.Equal(t, "hi", m.Value())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SendQuestionMsg{Text: "hi"}, cmd())
}

func TestChatIgnoresInputWhileBusy(t *testing.T) {
	m := newChat(session.Snapshot{})
	m.SetSnapshot(session.Snapshot{Ask: session.StatusInFlight})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Equal(t, "", m.Value())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Thinking...")
}

func TestChatBannerTakesStatusLine(t *testing.T) {
	m := newChat(session.Snapshot{Upload: session.StatusInFlight})
	assert.Contains(t, m.View(), "Uploading...")

	m.SetError("file too large")
	assert.Contains(t, m.View(), "file too large")
	assert.NotContains(t, m.View(), "Uploading...")

	m.ClearError()
	assert.Equal(t, "", m.Banner())
}

func TestDocumentsMarksBound(t *testing.T) {
	m := NewDocumentsModel("b.pdf", 100, 40)
	assert.Contains(t, m.View(), "Loading")

	m, _ = m.Update(tui.DocumentsLoadedMsg{Documents: []remote.DocumentInfo{
		{ID: 1, Filename: "a.pdf"},
		{ID: 2, Filename: "b.pdf"},
	}})
	view := m.View()
	assert.Contains(t, view, "a.pdf")
	assert.Contains(t, view, "b.pdf  (bound)")
}

func TestDocumentsEscCloses(t *testing.T) {
	m := NewDocumentsModel("", 100, 40)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseOverlayMsg{}, cmd())
}
