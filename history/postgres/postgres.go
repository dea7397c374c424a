/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

// DefaultTable is the table history records are inserted into when none is
// configured.
const DefaultTable = "crond_history"

// Conn is a pgx.Conn or pgxpool.Pool.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Options are the options for the postgres history sink.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Conn is the connection records are written through.
	Conn Conn

	// Table is the history table. Defaults to DefaultTable.
	Table string

	// Encoder renders status tokens.
	Encoder history.Encoder
}

// Postgres inserts each history record as a row. Rows carry a serial id so
// that ordering by id is append order.
type Postgres struct {
	log  logr.Logger
	conn Conn
	enc  history.Encoder

	insertSQL string
}

// New creates the history table if it does not exist and returns the sink.
func New(ctx context.Context, opts Options) (*Postgres, error) {
	if opts.Conn == nil {
		return nil, errors.New("postgres connection is required")
	}

	table := opts.Table
	if len(table) == 0 {
		table = DefaultTable
	}
	ident := pgx.Identifier{table}.Sanitize()

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	fired_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL
)`, ident)
	if _, err := opts.Conn.Exec(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &Postgres{
		log:       opts.Log.WithName("history-postgres"),
		conn:      opts.Conn,
		enc:       opts.Encoder,
		insertSQL: fmt.Sprintf("INSERT INTO %s (name, fired_at, status, message) VALUES ($1, $2, $3, $4)", ident),
	}, nil
}

func (p *Postgres) Append(ctx context.Context, entry api.HistoryEntry) error {
	tag, err := p.conn.Exec(ctx, p.insertSQL,
		entry.JobName, entry.FiredAt.UTC(), p.enc.Status(entry.Status), entry.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	p.log.V(1).Info("Inserted history record", "job", entry.JobName, "rows", tag.RowsAffected())
	return nil
}

// Dial returns a connection pool for the given connection string.
func Dial(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return pool, nil
}
