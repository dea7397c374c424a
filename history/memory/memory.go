/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package memory

import (
	"context"
	"sync"

	"github.com/diagridio/go-shell-cron/api"
)

// Memory is an in-memory history sink.
type Memory struct {
	lock    sync.RWMutex
	entries []api.HistoryEntry
	err     error
}

func New() *Memory {
	return new(Memory)
}

func (m *Memory) Append(ctx context.Context, entry api.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of every appended entry in append order.
func (m *Memory) Entries() []api.HistoryEntry {
	m.lock.RLock()
	defer m.lock.RUnlock()
	cp := make([]api.HistoryEntry, len(m.entries))
	copy(cp, m.entries)
	return cp
}

// WithError makes every subsequent Append fail with err. A nil err restores
// normal behaviour.
func (m *Memory) WithError(err error) *Memory {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.err = err
	return m
}
