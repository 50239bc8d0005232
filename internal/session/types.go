// Package session holds the conversation state of a document Q&A session
// and the controller that sequences uploads and questions against it.
package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation. Messages are never edited
// once appended.
type Message struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// Op names one of the two asynchronous operations a session tracks.
type Op string

const (
	OpUpload Op = "upload"
	OpAsk    Op = "ask"
)

// OpStatus is the state of one operation.
//
// Valid transitions are Idle -> InFlight, Failed -> InFlight,
// InFlight -> Idle and InFlight -> Failed.
type OpStatus int

const (
	StatusIdle OpStatus = iota
	StatusInFlight
	StatusFailed
)

func (s OpStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInFlight:
		return "in_flight"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText lets statuses appear by name in JSON events and journals.
func (s OpStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *OpStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StatusIdle
	case "in_flight":
		*s = StatusInFlight
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// CanTransition reports whether moving from s to next is allowed.
func (s OpStatus) CanTransition(next OpStatus) bool {
	switch s {
	case StatusIdle, StatusFailed:
		return next == StatusInFlight
	case StatusInFlight:
		return next == StatusIdle || next == StatusFailed
	}
	return false
}

// Snapshot is a read-only copy of the session state for rendering.
type Snapshot struct {
	ID       string
	Messages []Message
	Binding  string
	Upload   OpStatus
	Ask      OpStatus
	Draft    string
}

// Bound reports whether a document is currently bound.
func (s Snapshot) Bound() bool {
	return s.Binding != ""
}

// Busy reports whether either operation is in flight.
func (s Snapshot) Busy() bool {
	return s.Upload == StatusInFlight || s.Ask == StatusInFlight
}

// Document is a file handed to Upload. Name becomes the binding token on
// success; it is sent as-is with no renaming.
type Document struct {
	Name    string
	Size    int64
	Content io.Reader
}

// DocumentFromFile reads the file at path into memory and returns it as a
// Document named after the file's base name.
func DocumentFromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return &Document{
		Name:    filepath.Base(path),
		Size:    int64(len(data)),
		Content: bytes.NewReader(data),
	}, nil
}
