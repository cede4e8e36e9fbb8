package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

const entryColumns = "id, session_id, event_type, at, payload"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens the journal at dbPath, creating it if needed.
// Use ":memory:" for an in-memory journal.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, ErrDatabaseOpenFailed.Message()).
			WithContext("path", dbPath).
			Build()
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryStorage, ErrInitializeSchemaFailed.Message()).
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS tag_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	tag_id TEXT NOT NULL DEFAULT '',
	at INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tag_events_tag ON tag_events(tag_id, id);
`

// Append journals r. The tag id is stored in its own column so per-tag
// history does not need to decode payloads.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.At.IsZero() {
		r.At = s.now()
	}
	payload, err := r.Payload()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tag_events (session_id, event_type, tag_id, at, payload) VALUES (?, ?, ?, ?, ?)",
		sessionID, r.Type, r.TagID, r.At.UnixMilli(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.Type, err)
	}
	return nil
}

// All returns every entry in journal order.
func (s *SQLiteStore) All(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM tag_events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns up to limit entries for tagID, newest first. limit <= 0
// returns the whole history.
func (s *SQLiteStore) Recent(ctx context.Context, tagID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM tag_events WHERE tag_id = ? ORDER BY id DESC LIMIT ?",
		tagID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query tag %s: %w", tagID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// scanEntries decodes payloads back into records. The type and time columns
// win over the payload.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			eventTy string
			atMilli int64
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &eventTy, &atMilli, &payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Record); err != nil {
				return nil, fmt.Errorf("decode entry %d: %w", e.ID, err)
			}
		}
		e.Type = eventTy
		e.At = time.UnixMilli(atMilli)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
