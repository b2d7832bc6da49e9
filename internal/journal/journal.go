// Package journal keeps an audit log of release runs in SQLite so that a
// later invocation can show what an earlier one did (the history command).
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// Entry is one recorded pipeline event.
type Entry struct {
	ID       int64
	RunID    string
	Command  string
	Phase    string
	Time     time.Time
	Duration time.Duration
	Error    string
	Attrs    map[string]string
}

// Run summarizes one invocation.
type Run struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Commands int
	Failed   bool
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ByRun(ctx context.Context, runID string) ([]Entry, error)
	Runs(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, journalError("could not open journal database", err).WithContext("file", path).Build()
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, journalError("failed to initialize journal schema", err).WithContext("file", path).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		command TEXT NOT NULL,
		phase TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		attrs TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records e. A zero Time is replaced by now.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var attrs []byte
	if len(e.Attrs) > 0 {
		var err error
		if attrs, err = json.Marshal(e.Attrs); err != nil {
			return journalError("failed to marshal attributes", err).Build()
		}
	}
	when := e.Time
	if when.IsZero() {
		when = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (run_id, command, phase, timestamp, duration_ms, error, attrs) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.RunID, e.Command, e.Phase, when.UnixMilli(), e.Duration.Milliseconds(), e.Error, attrs,
	)
	if err != nil {
		return journalError("failed to append journal entry", err).WithContext("run_id", e.RunID).Build()
	}
	return nil
}

// ByRun returns the entries of one run in insertion order.
func (s *SQLiteStore) ByRun(ctx context.Context, runID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, command, phase, timestamp, duration_ms, error, attrs FROM events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, journalError("failed to query journal", err).Build()
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, durationMS int64
		var attrs []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Command, &e.Phase, &ts, &durationMS, &e.Error, &attrs); err != nil {
			return nil, journalError("failed to scan journal rows", err).Build()
		}
		e.Time = time.UnixMilli(ts)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &e.Attrs); err != nil {
				return nil, journalError("failed to unmarshal attributes", err).Build()
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("failed to iterate journal rows", err).Build()
	}
	return entries, nil
}

// Runs returns the most recent runs, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(timestamp), MAX(timestamp),
			SUM(CASE WHEN phase = 'started' THEN 1 ELSE 0 END),
			MAX(CASE WHEN phase = 'failed' THEN 1 ELSE 0 END)
		FROM events GROUP BY run_id ORDER BY MIN(id) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, journalError("failed to query journal", err).Build()
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var failed int
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Commands, &failed); err != nil {
			return nil, journalError("failed to scan journal rows", err).Build()
		}
		r.Started = time.UnixMilli(started)
		r.Finished = time.UnixMilli(finished)
		r.Failed = failed == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("failed to iterate journal rows", err).Build()
	}
	return runs, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func journalError(msg string, err error) *errors.ErrorBuilder {
	return errors.WrapError(err, errors.CategoryFileSystem, msg)
}
