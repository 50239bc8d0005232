package tui

import (
	"github.com/planet-dev/planet/internal/remote"
	"github.com/planet-dev/planet/internal/session"
)

// SessionEventMsg carries a session event forwarded from the event bus.
type SessionEventMsg struct {
	Event session.Event
}

// AskSettledMsg signals that an ask task has settled.
type AskSettledMsg struct {
	Answer string
	Err    error
}

// UploadSettledMsg signals that an upload task has settled.
type UploadSettledMsg struct {
	Document string
	Err      error
}

// DocumentsLoadedMsg carries the server's document listing.
type DocumentsLoadedMsg struct {
	Documents []remote.DocumentInfo
	Err       error
}

// ClearErrorMsg hides the error banner if it is still showing error ID.
type ClearErrorMsg struct {
	ID int
}

// CtrlCResetMsg resets the Ctrl+C confirmation state after timeout.
type CtrlCResetMsg struct{}
