package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the canonical state of one session. Its exported surface is
// read-only; every mutation goes through the unexported methods used by
// Controller, each of which takes the lock once so check-and-set steps are
// atomic.
type State struct {
	mu       sync.Mutex
	id       string
	seq      uint64
	messages []Message
	binding  string
	upload   OpStatus
	ask      OpStatus
	draft    string
}

// NewState creates a session seeded with the given messages and no bound
// document. The seed is copied.
func NewState(seed []Message) *State {
	msgs := make([]Message, len(seed))
	copy(msgs, seed)
	return &State{
		id:       uuid.NewString(),
		messages: msgs,
	}
}

// NewBoundState is NewState for a document the server already holds, such
// as one ingested by an earlier run. The binding is fixed at construction
// like the seed; afterwards only a successful upload replaces it.
func NewBoundState(seed []Message, binding string) *State {
	s := NewState(seed)
	s.binding = binding
	return s
}

// ID returns the session identifier.
func (s *State) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		ID:       s.id,
		Messages: msgs,
		Binding:  s.binding,
		Upload:   s.upload,
		Ask:      s.ask,
		Draft:    s.draft,
	}
}

// newEvent stamps an event with the next sequence number. Caller holds mu.
func (s *State) newEvent(kind EventKind) Event {
	s.seq++
	return Event{
		Seq:       s.seq,
		SessionID: s.id,
		Time:      time.Now().UTC(),
		Kind:      kind,
	}
}

// transition moves op to next. Caller holds mu.
func (s *State) transition(op Op, next OpStatus) (Event, error) {
	cur := &s.ask
	if op == OpUpload {
		cur = &s.upload
	}
	if !cur.CanTransition(next) {
		return Event{}, fmt.Errorf("%s %s -> %s: %w", op, *cur, next, errInvalidTransition)
	}
	*cur = next

	ev := s.newEvent(EventStatusChanged)
	ev.Op = op
	ev.Status = statusPtr(next)
	return ev, nil
}

// appendMessage adds msg to the log. Caller holds mu.
func (s *State) appendMessage(msg Message) Event {
	s.messages = append(s.messages, msg)
	ev := s.newEvent(EventMessageAppended)
	ev.Message = &msg
	return ev
}

func (s *State) started() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newEvent(EventSessionStarted)
}

func (s *State) setDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// beginAsk records question as a user message, clears the draft and marks
// the ask in flight. It returns the binding the request must carry.
func (s *State) beginAsk(question string) ([]Event, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ask == StatusInFlight {
		return nil, "", ErrAskBusy
	}

	appended := s.appendMessage(Message{Role: RoleUser, Text: question})
	s.draft = ""
	changed, err := s.transition(OpAsk, StatusInFlight)
	if err != nil {
		return nil, "", err
	}
	return []Event{appended, changed}, s.binding, nil
}

// settleAsk commits the outcome of an ask. On failure nothing is appended.
func (s *State) settleAsk(answer string, failure *Error, took time.Duration) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	next := StatusIdle
	if failure != nil {
		next = StatusFailed
	} else {
		events = append(events, s.appendMessage(Message{Role: RoleAssistant, Text: answer}))
	}

	if changed, err := s.transition(OpAsk, next); err == nil {
		events = append(events, changed)
	}

	settled := s.newEvent(EventAskSettled)
	settled.Op = OpAsk
	settled.Binding = s.binding
	settled.Duration = took
	if failure != nil {
		settled.Failed = true
		settled.ErrKind = failure.Kind.String()
		settled.Detail = failure.Detail
	}
	return append(events, settled)
}

// beginUpload marks the upload in flight.
func (s *State) beginUpload() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upload == StatusInFlight {
		return nil, ErrUploadBusy
	}
	changed, err := s.transition(OpUpload, StatusInFlight)
	if err != nil {
		return nil, err
	}
	return []Event{changed}, nil
}

// settleUpload commits the outcome of an upload. The binding is replaced
// only on success.
func (s *State) settleUpload(doc *Document, failure *Error, took time.Duration) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	next := StatusIdle
	if failure != nil {
		next = StatusFailed
	} else {
		prev := s.binding
		s.binding = doc.Name
		bound := s.newEvent(EventBindingChanged)
		bound.Binding = doc.Name
		bound.Previous = prev
		events = append(events, bound)
	}

	if changed, err := s.transition(OpUpload, next); err == nil {
		events = append(events, changed)
	}

	settled := s.newEvent(EventUploadSettled)
	settled.Op = OpUpload
	settled.Document = doc.Name
	settled.Size = doc.Size
	settled.Binding = s.binding
	settled.Duration = took
	if failure != nil {
		settled.Failed = true
		settled.ErrKind = failure.Kind.String()
		settled.Detail = failure.Detail
	}
	return append(events, settled)
}
