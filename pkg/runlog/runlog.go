// Package runlog stores the history of pipeline runs in sqlite.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one processing or modeling run.
type Run struct {
	ID        string        `json:"id"`
	View      string        `json:"view"`
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type Store struct {
	db *sql.DB
}

// Open creates the database at path if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create run log directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; sqlite serializes them anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		view TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		started_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts r, replacing a run with the same ID.
func (s *Store) Record(ctx context.Context, r Run) error {
	query := `
		INSERT INTO runs (id, view, status, message, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			message = excluded.message,
			duration_ns = excluded.duration_ns
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.View, r.Status, r.Message, r.StartedAt.UTC(), int64(r.Duration))
	return err
}

// List returns the most recent runs first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, view, status, message, started_at, duration_ns FROM runs ORDER BY started_at DESC, id LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var msg sql.NullString
		var ns int64
		if err := rows.Scan(&r.ID, &r.View, &r.Status, &msg, &r.StartedAt, &ns); err != nil {
			return nil, err
		}
		r.Message = msg.String
		r.Duration = time.Duration(ns)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
