package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/planet-dev/planet/internal/session"
	"github.com/planet-dev/planet/internal/tui"
)

// Sender is the part of *tea.Program Forward needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward delivers session events to the program until events closes or
// ctx ends.
func Forward(ctx context.Context, p Sender, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Send(tui.SessionEventMsg{Event: ev})
		}
	}
}
