/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package job

import (
	"errors"
	"strings"
	"time"
	"unicode"

	cronerrors "github.com/diagridio/go-shell-cron/api/errors"
	"github.com/diagridio/go-shell-cron/internal/scheduler"
)

// Job is a named command paired with its schedule and cached next fire
// instant. A Job is owned by the scheduler loop once loaded.
type Job struct {
	Name     string
	Schedule string
	Spec     *scheduler.Spec
	Command  string
	NextRun  time.Time
}

// Definition is the textual form of a Job as written in a job file:
// `name: <minute> <hour> <day-of-month> <month> <day-of-week> <command>`.
type Definition struct {
	Name     string
	Schedule string
	Command  string
}

// String renders the definition back into its line form.
func (d Definition) String() string {
	return d.Name + ": " + d.Schedule + " " + d.Command
}

// ParseDefinition splits a job definition line into its name, schedule and
// command. The command is everything after the fifth schedule field, with
// surrounding blanks removed. The name and schedule are not validated beyond
// their shape.
func ParseDefinition(line string) (Definition, error) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Definition{}, cronerrors.NewInvalidJobDefinition(line, errors.New("missing ':' after job name"))
	}

	fields := make([]string, 0, 5)
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	for len(fields) < 5 {
		if len(rest) == 0 {
			return Definition{}, cronerrors.NewInvalidJobDefinition(line, errors.New("expected 5 schedule fields followed by a command"))
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		fields = append(fields, rest[:end])
		rest = strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	}

	command := strings.TrimRightFunc(rest, unicode.IsSpace)
	if len(command) == 0 {
		return Definition{}, cronerrors.NewInvalidJobDefinition(line, errors.New("missing command"))
	}

	return Definition{
		Name:     strings.TrimSpace(name),
		Schedule: strings.Join(fields, " "),
		Command:  command,
	}, nil
}
