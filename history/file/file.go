/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"

	"github.com/diagridio/go-shell-cron/api"
	"github.com/diagridio/go-shell-cron/history"
)

// Options are the options for the file history sink.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Path is the history file. It and its parent directory are created if
	// missing.
	Path string

	// Encoder renders records.
	Encoder history.Encoder

	// NoSync skips the fsync after each record.
	NoSync bool
}

// File appends history records to a delimited text file, one record per
// line.
type File struct {
	log    logr.Logger
	enc    history.Encoder
	noSync bool

	lock sync.Mutex
	f    *os.File
	out  io.Writer
}

func New(opts Options) (*File, error) {
	if len(opts.Path) == 0 {
		return nil, errors.New("history file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	//nolint:gosec
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}

	log := opts.Log.WithName("history-file")
	log.Info("Appending history", "path", opts.Path)

	return &File{
		log:    log,
		enc:    opts.Encoder,
		noSync: opts.NoSync,
		f:      f,
		out:    f,
	}, nil
}

func (f *File) Append(ctx context.Context, entry api.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.f == nil {
		return errors.New("history file is closed")
	}

	line, err := f.enc.Line(entry)
	if err != nil {
		return err
	}

	// One write per record, so a failed append leaves no state behind for the
	// next one.
	if _, err = io.WriteString(f.out, line+"\n"); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}

	if f.noSync {
		return nil
	}
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync history file: %w", err)
	}

	return nil
}

func (f *File) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}
