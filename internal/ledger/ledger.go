// Package ledger keeps a SQLite record of upload attempts. It is a history
// of what was sent to the server, not of conversations; nothing in it is
// ever loaded back into a session.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/planet-dev/planet/internal/session"
)

// Upload is one recorded upload attempt.
type Upload struct {
	ID         string
	SessionID  string
	Filename   string
	Size       int64
	Failed     bool
	ErrKind    string
	Detail     string
	DurationMs int64
	CreatedAt  time.Time
}

// Store provides SQLite-backed persistence for upload attempts.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		size INTEGER DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		err_kind TEXT,
		detail TEXT,
		duration_ms INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS uploads_created_at ON uploads(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Add inserts u. A missing ID or CreatedAt is filled in.
func (s *Store) Add(u *Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = u.CreatedAt.UTC()

	_, err := s.db.Exec(
		`INSERT INTO uploads (id, session_id, filename, size, failed, err_kind, detail, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.SessionID, u.Filename, u.Size, u.Failed, u.ErrKind, u.Detail, u.DurationMs, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}

	return nil
}

// FromEvent builds the ledger row for an upload_settled event. ok is false
// for any other event kind.
func FromEvent(ev session.Event) (u *Upload, ok bool) {
	if ev.Kind != session.EventUploadSettled {
		return nil, false
	}
	return &Upload{
		SessionID:  ev.SessionID,
		Filename:   ev.Document,
		Size:       ev.Size,
		Failed:     ev.Failed,
		ErrKind:    ev.ErrKind,
		Detail:     ev.Detail,
		DurationMs: ev.Duration.Milliseconds(),
		CreatedAt:  ev.Time,
	}, true
}

// List returns the most recent uploads, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, filename, size, failed, COALESCE(err_kind, ''), COALESCE(detail, ''), duration_ms, created_at
		 FROM uploads
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Filename, &u.Size, &u.Failed, &u.ErrKind, &u.Detail, &u.DurationMs, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return uploads, nil
}

// Record adds a row for every upload_settled event until events closes or
// ctx ends. Other events are ignored. onErr, when non-nil, is told about
// failed inserts.
func (s *Store) Record(ctx context.Context, events <-chan session.Event, onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			u, ok := FromEvent(ev)
			if !ok {
				continue
			}
			if err := s.Add(u); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
