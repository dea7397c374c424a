/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package errors

import (
	"errors"
	"fmt"
)

// InvalidFieldSyntax is an error type that indicates a cron field does not
// follow the field grammar.
type InvalidFieldSyntax struct {
	err string
}

func (i InvalidFieldSyntax) Error() string {
	return i.err
}

func NewInvalidFieldSyntax(field, reason string) InvalidFieldSyntax {
	return InvalidFieldSyntax{err: fmt.Sprintf("invalid cron field syntax '%s': %s", field, reason)}
}

func IsInvalidFieldSyntax(err error) bool {
	var target InvalidFieldSyntax
	return errors.As(err, &target)
}

// ValueOutOfRange is an error type that indicates a cron field expands to a
// value outside of the range allowed for its slot.
type ValueOutOfRange struct {
	err string
}

func (v ValueOutOfRange) Error() string {
	return v.err
}

func NewValueOutOfRange(field string, value, min, max int) ValueOutOfRange {
	return ValueOutOfRange{
		err: fmt.Sprintf("cron field '%s' value %d out of range [%d,%d]", field, value, min, max),
	}
}

func IsValueOutOfRange(err error) bool {
	var target ValueOutOfRange
	return errors.As(err, &target)
}

// ScheduleUnsatisfiable is an error type that indicates the next run search
// exhausted its probe budget without finding a matching instant.
type ScheduleUnsatisfiable struct {
	err    string
	probes int
}

func (s ScheduleUnsatisfiable) Error() string {
	return s.err
}

// Probes returns the number of probes evaluated before giving up.
func (s ScheduleUnsatisfiable) Probes() int {
	return s.probes
}

func NewScheduleUnsatisfiable(schedule string, probes int) ScheduleUnsatisfiable {
	return ScheduleUnsatisfiable{
		err:    fmt.Sprintf("schedule '%s' has no matching instant within %d probes", schedule, probes),
		probes: probes,
	}
}

func IsScheduleUnsatisfiable(err error) bool {
	var target ScheduleUnsatisfiable
	return errors.As(err, &target)
}

// ProcessLaunchFailure is an error type that indicates a job command could not
// be started.
type ProcessLaunchFailure struct {
	err   string
	cause error
}

func (p ProcessLaunchFailure) Error() string {
	return p.err
}

func (p ProcessLaunchFailure) Unwrap() error {
	return p.cause
}

func NewProcessLaunchFailure(command string, cause error) ProcessLaunchFailure {
	return ProcessLaunchFailure{
		err:   fmt.Sprintf("failed to launch '%s': %s", command, cause),
		cause: cause,
	}
}

func IsProcessLaunchFailure(err error) bool {
	var target ProcessLaunchFailure
	return errors.As(err, &target)
}

// ProcessNonZeroExit is an error type that indicates a job command ran but
// exited with a non-zero code.
type ProcessNonZeroExit struct {
	err  string
	code int
}

func (p ProcessNonZeroExit) Error() string {
	return p.err
}

// ExitCode returns the exit code of the process.
func (p ProcessNonZeroExit) ExitCode() int {
	return p.code
}

func NewProcessNonZeroExit(command string, code int) ProcessNonZeroExit {
	return ProcessNonZeroExit{
		err:  fmt.Sprintf("'%s' exited with code %d", command, code),
		code: code,
	}
}

func IsProcessNonZeroExit(err error) bool {
	var target ProcessNonZeroExit
	return errors.As(err, &target)
}

// JobAlreadyExists is an error type that indicates a Job with the same name is
// already part of the active set.
type JobAlreadyExists struct {
	err string
}

func (j JobAlreadyExists) Error() string {
	return j.err
}

func NewJobAlreadyExists(job string) JobAlreadyExists {
	return JobAlreadyExists{err: fmt.Sprintf("job already exists: '%s'", job)}
}

func IsJobAlreadyExists(err error) bool {
	var target JobAlreadyExists
	return errors.As(err, &target)
}

// InvalidJobDefinition is an error type that indicates a job definition line
// could not be parsed.
type InvalidJobDefinition struct {
	err   string
	cause error
}

func (i InvalidJobDefinition) Error() string {
	return i.err
}

func (i InvalidJobDefinition) Unwrap() error {
	return i.cause
}

func NewInvalidJobDefinition(line string, cause error) InvalidJobDefinition {
	return InvalidJobDefinition{
		err:   fmt.Sprintf("invalid job definition '%s': %s", line, cause),
		cause: cause,
	}
}

func IsInvalidJobDefinition(err error) bool {
	var target InvalidJobDefinition
	return errors.As(err, &target)
}
