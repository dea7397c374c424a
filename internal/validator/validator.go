/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	jobNameFmt    = "[A-Za-z_-]+"
	jobNameErrMsg = "a job name must consist of letters, '_' or '-'"

	// DefaultMaxJobNameLength is the default upper bound on job name length.
	DefaultMaxJobNameLength = 255
)

var jobNameRegexp = regexp.MustCompile("^" + jobNameFmt + "$")

// Options is a struct that contains options for the validator.
type Options struct {
	// MaxJobNameLength caps the length of a job name. Defaults to
	// DefaultMaxJobNameLength.
	MaxJobNameLength int
}

// Validator validates job definitions.
type Validator struct {
	maxJobNameLength int
}

func New(opts Options) *Validator {
	maxLen := opts.MaxJobNameLength
	if maxLen <= 0 {
		maxLen = DefaultMaxJobNameLength
	}
	return &Validator{
		maxJobNameLength: maxLen,
	}
}

// JobName validates a job name string.
func (v *Validator) JobName(name string) error {
	if len(name) == 0 {
		return errors.New("job name cannot be empty")
	}

	var errs []string
	if len(name) > v.maxJobNameLength {
		errs = append(errs, validation.MaxLenError(v.maxJobNameLength))
	}
	if !jobNameRegexp.MatchString(name) {
		errs = append(errs, validation.RegexError(jobNameErrMsg, jobNameFmt, "nightly_backup", "rotate-logs"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("job name is invalid %q: %s", name, strings.Join(errs, ", "))
	}

	return nil
}

// Command validates a job command string.
func (v *Validator) Command(command string) error {
	if len(strings.TrimSpace(command)) == 0 {
		return errors.New("job command cannot be empty")
	}
	return nil
}
