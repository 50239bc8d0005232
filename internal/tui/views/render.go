package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/tui"
)

// Renderer formats the message log for the chat viewport. Assistant
// answers go through glamour when markdown rendering is enabled.
type Renderer struct {
	markdown bool
	width    int
	term     *glamour.TermRenderer
}

// NewRenderer creates a Renderer wrapping at width.
func NewRenderer(markdown bool, width int) *Renderer {
	r := &Renderer{markdown: markdown}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the markdown renderer for a new wrap width.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && (r.term != nil || !r.markdown) {
		return
	}
	r.width = width
	if !r.markdown {
		return
	}

	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable, using plain text")
		r.term = nil
		return
	}
	r.term = term
}

// Messages formats the whole message log.
func (r *Renderer) Messages(messages []session.Message) string {
	if len(messages) == 0 {
		return tui.DimStyle.Render("No messages yet. Upload a PDF with ctrl+u, then ask away.")
	}

	var b strings.Builder
	for i, msg := range messages {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString(tui.UserStyle.Render("You: "))
			b.WriteString(msg.Text)
		case session.RoleAssistant:
			b.WriteString(tui.AssistantStyle.Render("Planet: "))
			b.WriteString(r.answer(msg.Text))
		default:
			b.WriteString(tui.DimStyle.Render(string(msg.Role) + ": "))
			b.WriteString(msg.Text)
		}

		if i < len(messages)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func (r *Renderer) answer(text string) string {
	if r.term == nil {
		return text
	}
	out, err := r.term.Render(text)
	if err != nil {
		return text
	}
	return "\n" + strings.Trim(out, "\n")
}
