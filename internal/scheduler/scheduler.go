/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package scheduler

import (
	"time"
)

// LoopLimit is the default number of probes the next run search evaluates
// before declaring a schedule unsatisfiable.
const LoopLimit = 128

// Interface is an interface which returns the next trigger time for a given
// parsed schedule.
type Interface interface {
	// Next returns the first instant at or after the minute of from at which
	// the schedule fires.
	Next(from time.Time) (time.Time, error)
}
