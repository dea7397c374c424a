/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package job

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/diagridio/go-shell-cron/internal/scheduler"
	"github.com/diagridio/go-shell-cron/internal/validator"
)

// MaxLineLength is the longest job definition line accepted, in bytes. Longer
// lines are rejected on their own.
const MaxLineLength = 64 * 1024

// LoaderOptions are the options for creating a new Loader.
type LoaderOptions struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Builder parses schedules and computes the first next run of each job.
	Builder *scheduler.Builder

	// Validator validates job names and commands.
	Validator *validator.Validator
}

// Loader reads job definitions and turns them into schedulable Jobs.
type Loader struct {
	log       logr.Logger
	builder   *scheduler.Builder
	validator *validator.Validator
}

func NewLoader(opts LoaderOptions) *Loader {
	l := &Loader{
		log:       opts.Log.WithName("job-loader"),
		builder:   opts.Builder,
		validator: opts.Validator,
	}
	if l.builder == nil {
		l.builder = scheduler.NewBuilder(scheduler.BuilderOptions{})
	}
	if l.validator == nil {
		l.validator = validator.New(validator.Options{})
	}
	return l
}

// LoadFile loads the jobs defined in the file at path. A missing file is not
// an error and yields no jobs.
func (l *Loader) LoadFile(path string) ([]*Job, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		l.log.Info("Job file does not exist, starting with no jobs", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open job file: %w", err)
	}
	defer f.Close()

	return l.Load(f)
}

// Load reads one job definition per line from r. Blank lines and lines
// starting with '#' are skipped. Every valid job is returned, along with an
// aggregate error describing each rejected line. A rejected line never
// prevents the remaining lines from loading. When two lines define the same
// name the first one wins.
func (l *Loader) Load(r io.Reader) ([]*Job, error) {
	var (
		jobs  []*Job
		errs  field.ErrorList
		names = make(map[string]struct{})
	)

	reader := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		raw, rerr := reader.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return jobs, fmt.Errorf("failed to read job definitions: %w", rerr)
		}

		path := field.NewPath("line").Index(lineNo)

		if line := strings.TrimSpace(raw); len(strings.TrimRight(raw, "\r\n")) > MaxLineLength {
			ferr := field.TooLong(path, "", MaxLineLength)
			l.log.Error(ferr, "Rejected job definition", "line", lineNo)
			errs = append(errs, ferr)
		} else if len(line) > 0 && !strings.HasPrefix(line, "#") {
			if job, ferr := l.add(path, line, names); ferr != nil {
				l.log.Error(ferr, "Rejected job definition", "line", lineNo)
				errs = append(errs, ferr)
			} else {
				jobs = append(jobs, job)
				l.log.V(1).Info("Loaded job", "name", job.Name, "schedule", job.Schedule, "next", job.NextRun)
			}
		}

		if rerr != nil {
			break
		}
	}

	return jobs, errs.ToAggregate()
}

// add parses line and claims its name. The first definition of a name wins.
func (l *Loader) add(path *field.Path, line string, names map[string]struct{}) (*Job, *field.Error) {
	job, ferr := l.parse(path, line)
	if ferr != nil {
		return nil, ferr
	}
	if _, ok := names[job.Name]; ok {
		return nil, field.Duplicate(path.Child("name"), job.Name)
	}
	names[job.Name] = struct{}{}
	return job, nil
}

func (l *Loader) parse(path *field.Path, line string) (*Job, *field.Error) {
	def, err := ParseDefinition(line)
	if err != nil {
		return nil, field.Invalid(path, line, err.Error())
	}

	if err = l.validator.JobName(def.Name); err != nil {
		return nil, field.Invalid(path.Child("name"), def.Name, err.Error())
	}
	if err = l.validator.Command(def.Command); err != nil {
		return nil, field.Required(path.Child("command"), err.Error())
	}

	spec, err := l.builder.Parse(def.Schedule)
	if err != nil {
		return nil, field.Invalid(path.Child("schedule"), def.Schedule, err.Error())
	}

	next, err := l.builder.Next(spec)
	if err != nil {
		return nil, field.Invalid(path.Child("schedule"), def.Schedule, err.Error())
	}

	return &Job{
		Name:     def.Name,
		Schedule: spec.String(),
		Spec:     spec,
		Command:  def.Command,
		NextRun:  next,
	}, nil
}
