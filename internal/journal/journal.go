// Package journal records session events as append-only JSON lines in
// .planet/log.jsonl. Entries describe what happened (kinds, statuses,
// document names, error details, sizes) but never carry message text.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/planet-dev/planet/internal/session"
)

// Entry is a single line of the journal.
type Entry struct {
	Time       time.Time `json:"time"`
	Event      string    `json:"event"`
	Seq        uint64    `json:"seq,omitempty"`
	SessionID  string    `json:"session,omitempty"`
	Op         string    `json:"op,omitempty"`
	Status     string    `json:"status,omitempty"`
	Role       string    `json:"role,omitempty"`
	Chars      int       `json:"chars,omitempty"`
	Document   string    `json:"document,omitempty"`
	Previous   string    `json:"previous,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Failed     bool      `json:"failed,omitempty"`
	ErrKind    string    `json:"err_kind,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Journal writes append-only JSONL entries to a file.
type Journal struct {
	path string
	mu   sync.Mutex
}

// New creates a Journal that writes to .planet/log.jsonl inside dir.
// Creates the .planet/ directory if it does not already exist.
// Does not truncate an existing journal.
func New(dir string) (*Journal, error) {
	planetDir := filepath.Join(dir, ".planet")
	if err := os.MkdirAll(planetDir, 0755); err != nil {
		return nil, fmt.Errorf("create .planet directory: %w", err)
	}

	return &Journal{
		path: filepath.Join(planetDir, "log.jsonl"),
	}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Append writes a single Entry as one JSON line.
// If entry.Time is the zero value, it is set to time.Now().UTC().
func (j *Journal) Append(entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}

	return nil
}

// ReadAll reads and parses all entries.
// Returns an empty slice (not an error) if the journal does not exist.
func (j *Journal) ReadAll() ([]Entry, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return entries, nil
}

// FromEvent converts a session event into a journal entry.
func FromEvent(ev session.Event) Entry {
	e := Entry{
		Time:       ev.Time,
		Event:      string(ev.Kind),
		Seq:        ev.Seq,
		SessionID:  ev.SessionID,
		Op:         string(ev.Op),
		Document:   ev.Document,
		Size:       ev.Size,
		Failed:     ev.Failed,
		ErrKind:    ev.ErrKind,
		Detail:     ev.Detail,
		DurationMs: ev.Duration.Milliseconds(),
	}
	if ev.Status != nil {
		e.Status = ev.Status.String()
	}
	if ev.Message != nil {
		e.Role = string(ev.Message.Role)
		e.Chars = len(ev.Message.Text)
	}
	if ev.Kind == session.EventBindingChanged {
		e.Document = ev.Binding
		e.Previous = ev.Previous
	}
	return e
}

// Record appends the entries for events until the channel closes or ctx
// ends. onErr, when non-nil, is told about write failures; recording
// continues after them.
func (j *Journal) Record(ctx context.Context, events <-chan session.Event, onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := j.Append(FromEvent(ev)); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
