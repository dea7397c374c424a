/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

const createTable = `CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	fired_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL
)`

const insertRecord = `INSERT INTO history (name, fired_at, status, message) VALUES (?, ?, ?, ?)`

// Options are the options for the sqlite history sink.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Path is the database file. Its parent directory is created if missing.
	Path string

	// Encoder renders status tokens.
	Encoder history.Encoder
}

// SQLite inserts each history record as a row of a local database file.
// fired_at holds unix milliseconds.
type SQLite struct {
	log logr.Logger
	db  *sql.DB
	enc history.Encoder
}

func New(ctx context.Context, opts Options) (*SQLite, error) {
	if len(opts.Path) == 0 {
		return nil, errors.New("sqlite database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection serializes writes in call order.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, createTable); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create history table: %w", err), db.Close())
	}

	log := opts.Log.WithName("history-sqlite")
	log.Info("Appending history", "path", opts.Path)

	return &SQLite{
		log: log,
		db:  db,
		enc: opts.Encoder,
	}, nil
}

func (s *SQLite) Append(ctx context.Context, entry api.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, insertRecord,
		entry.JobName, entry.FiredAt.UnixMilli(), s.enc.Status(entry.Status), entry.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// Entries returns every stored record in append order.
func (s *SQLite) Entries(ctx context.Context) ([]api.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, fired_at, status, message FROM history ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []api.HistoryEntry
	for rows.Next() {
		var (
			name, status, message string
			millis                int64
		)
		if err = rows.Scan(&name, &millis, &status, &message); err != nil {
			return nil, err
		}
		entry, err := history.ParseRecord([]string{name, fmt.Sprint(millis), status, message})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
