/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package api

import (
	"strings"
	"time"
)

// Status is the outcome of one job execution attempt.
type Status int32

const (
	// StatusSuccess is recorded when the command exited with code zero.
	StatusSuccess Status = iota

	// StatusError is recorded when the command could not be launched or exited
	// with a non-zero code.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus returns the Status for the given history token. Matching is case
// insensitive so that logs written with lower case tokens can be read back.
func ParseStatus(token string) (Status, bool) {
	switch strings.ToUpper(token) {
	case "SUCCESS":
		return StatusSuccess, true
	case "ERROR":
		return StatusError, true
	default:
		return StatusError, false
	}
}

// HistoryEntry is the immutable record of a single job execution attempt.
// Entries are correlated to jobs by name only, so that history survives a job
// being redefined.
type HistoryEntry struct {
	// JobName is the name of the job that fired.
	JobName string

	// FiredAt is the instant the command was launched.
	FiredAt time.Time

	// Status is the outcome of the execution.
	Status Status

	// Message is the captured standard error of the command, or a description
	// of why the command could not be launched.
	Message string
}
