/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package history

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diagridio/go-shell-cron/api"
)

// Sink is a durable, append-only history log. Append must preserve call
// order and must return once ctx is done.
type Sink interface {
	Append(ctx context.Context, entry api.HistoryEntry) error
}

// Encoder renders history entries as `name,unix_millis,status,message`
// records.
type Encoder struct {
	// Lowercase renders the status token in lower case.
	Lowercase bool
}

// Status returns the status token for s.
func (e Encoder) Status(s api.Status) string {
	if e.Lowercase {
		return strings.ToLower(s.String())
	}
	return s.String()
}

// Record returns the fields of the history record for entry.
func (e Encoder) Record(entry api.HistoryEntry) []string {
	return []string{
		entry.JobName,
		strconv.FormatInt(entry.FiredAt.UnixMilli(), 10),
		e.Status(entry.Status),
		entry.Message,
	}
}

// Line returns the delimited text form of entry, without a trailing newline.
// Fields containing the delimiter, quotes or line breaks are quoted.
func (e Encoder) Line(entry api.HistoryEntry) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(e.Record(entry)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ParseRecord reads back a record produced by Encoder.Record.
func ParseRecord(record []string) (api.HistoryEntry, error) {
	if len(record) != 4 {
		return api.HistoryEntry{}, fmt.Errorf("history record has %d fields, expected 4", len(record))
	}

	millis, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return api.HistoryEntry{}, fmt.Errorf("invalid history timestamp %q: %w", record[1], err)
	}

	status, ok := api.ParseStatus(record[2])
	if !ok {
		return api.HistoryEntry{}, fmt.Errorf("invalid history status %q", record[2])
	}

	return api.HistoryEntry{
		JobName: record[0],
		FiredAt: time.UnixMilli(millis).UTC(),
		Status:  status,
		Message: record[3],
	}, nil
}

// ParseLine reads back a line produced by Encoder.Line.
func ParseLine(line string) (api.HistoryEntry, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = 4
	record, err := r.Read()
	if err != nil {
		return api.HistoryEntry{}, fmt.Errorf("failed to read history line: %w", err)
	}
	return ParseRecord(record)
}
