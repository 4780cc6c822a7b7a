// Package history keeps a local log of jobs that reached a terminal status.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	DefaultLimit = 20
	maxLimit     = 500
)

type Entry struct {
	ID        int64  `json:"id"`
	JobID     string `json:"job_id"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	SavedPath string `json:"saved_path,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS downloads (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id     TEXT NOT NULL,
		url        TEXT NOT NULL,
		title      TEXT,
		status     TEXT NOT NULL,
		message    TEXT,
		file_name  TEXT,
		saved_path TEXT,
		created_at TEXT NOT NULL
	)`)
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e. CreatedAt is filled in when empty.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.JobID) == "" || strings.TrimSpace(e.Status) == "" {
		return 0, errors.New("history: job id and status are required")
	}
	if e.CreatedAt == "" {
		e.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (job_id, url, title, status, message, file_name, saved_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.URL, e.Title, e.Status, e.Message, e.FileName, e.SavedPath, e.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, url, title, status, message, file_name, saved_path, created_at
		 FROM downloads ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var title, message, fileName, savedPath sql.NullString
		if err := rows.Scan(&e.ID, &e.JobID, &e.URL, &title, &e.Status, &message, &fileName, &savedPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Title = title.String
		e.Message = message.String
		e.FileName = fileName.String
		e.SavedPath = savedPath.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}
