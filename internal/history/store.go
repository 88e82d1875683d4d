// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a durable ledger of finished conversions in SQLite
// so past runs can be listed after the process that ran them has exited.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ocr2md/pkg/types"
)

const (
	dbFile       = "history.db"
	defaultLimit = 20
)

// ErrNotFound is returned by Get for an unknown conversion ID.
var ErrNotFound = errors.New("conversion not found")

// Entry is one recorded conversion.
type Entry struct {
	ID         types.JobID     `json:"id"`
	SourcePath string          `json:"source_path"`
	Status     types.JobStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	Bytes      int64           `json:"bytes"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/history.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_finished_at ON conversions(finished_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished job. Recording the same ID again replaces the
// earlier row.
func (s *Store) Record(ctx context.Context, job types.ConversionJob, bytes int64) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("recording job %s: status %q is not terminal", job.ID, job.Status)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO conversions (id, source_path, status, error, created_at, finished_at, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(job.ID), job.SourcePath, string(job.Status), job.Error,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		bytes,
	)
	if err != nil {
		return fmt.Errorf("recording job %s: %w", job.ID, err)
	}
	return nil
}

// List returns up to limit entries, most recently finished first. A
// non-positive limit uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, status, error, created_at, finished_at, bytes
		 FROM conversions ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	return entries, nil
}

// Get returns the entry for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id types.JobID) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, status, error, created_at, finished_at, bytes
		 FROM conversions WHERE id = ?`, string(id))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                 Entry
		id, status        string
		errMsg            sql.NullString
		created, finished string
	)
	if err := sc.Scan(&id, &e.SourcePath, &status, &errMsg, &created, &finished, &e.Bytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning conversion: %w", err)
	}
	e.ID = types.JobID(id)
	e.Status = types.JobStatus(status)
	e.Error = errMsg.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	e.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return e, nil
}
