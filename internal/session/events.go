package session

import (
	"time"
)

// EventKind names a state change published by the controller.
type EventKind string

const (
	EventSessionStarted  EventKind = "session_started"
	EventMessageAppended EventKind = "message_appended"
	EventStatusChanged   EventKind = "status_changed"
	EventBindingChanged  EventKind = "binding_changed"
	EventUploadSettled   EventKind = "upload_settled"
	EventAskSettled      EventKind = "ask_settled"
)

// Event describes one committed change to a session. Seq increases by one
// per event within a session; subscribers that need strict ordering sort
// by it.
type Event struct {
	Seq       uint64        `json:"seq"`
	SessionID string        `json:"session_id"`
	Time      time.Time     `json:"time"`
	Kind      EventKind     `json:"kind"`
	Op        Op            `json:"op,omitempty"`
	Status    *OpStatus     `json:"status,omitempty"`
	Message   *Message      `json:"message,omitempty"`
	Binding   string        `json:"binding,omitempty"`
	Previous  string        `json:"previous,omitempty"`
	Document  string        `json:"document,omitempty"`
	Size      int64         `json:"size,omitempty"`
	Failed    bool          `json:"failed,omitempty"`
	ErrKind   string        `json:"err_kind,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Notifier receives events after they are committed. Notify must not block
// for long; it is called from the goroutine that settled the operation.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

func statusPtr(s OpStatus) *OpStatus {
	return &s
}
