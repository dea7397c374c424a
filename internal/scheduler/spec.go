/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/diagridio/go-shell-cron/api/errors"
	"github.com/diagridio/go-shell-cron/internal/field"
)

// Spec is a parsed five field cron expression. It is immutable once parsed.
type Spec struct {
	expr string

	minute     field.Field
	hour       field.Field
	dayOfMonth field.Field
	month      field.Field
	dayOfWeek  field.Field
}

// Parse parses a cron expression of five whitespace separated fields:
// minute, hour, day-of-month, month and day-of-week.
func Parse(expr string) (*Spec, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, errors.NewInvalidFieldSyntax(expr, fmt.Sprintf("expected 5 fields, got %d", len(parts)))
	}

	constraints := [5]field.Constraint{
		field.Minute, field.Hour, field.DayOfMonth, field.Month, field.DayOfWeek,
	}

	var fields [5]field.Field
	for i, part := range parts {
		f, err := field.Parse(part, constraints[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", constraints[i].Name, err)
		}
		fields[i] = f
	}

	return &Spec{
		expr:       strings.Join(parts, " "),
		minute:     fields[0],
		hour:       fields[1],
		dayOfMonth: fields[2],
		month:      fields[3],
		dayOfWeek:  fields[4],
	}, nil
}

// Minute returns the parsed minute field.
func (s *Spec) Minute() field.Field { return s.minute }

// Hour returns the parsed hour field.
func (s *Spec) Hour() field.Field { return s.hour }

// DayOfMonth returns the parsed day-of-month field.
func (s *Spec) DayOfMonth() field.Field { return s.dayOfMonth }

// Month returns the parsed month field.
func (s *Spec) Month() field.Field { return s.month }

// DayOfWeek returns the parsed day-of-week field.
func (s *Spec) DayOfWeek() field.Field { return s.dayOfWeek }

// String returns the normalized expression the Spec was parsed from.
func (s *Spec) String() string {
	return s.expr
}

var defaultCalculator = NewCalculator()

// Next returns the next instant at which the Spec fires using the default
// probe budget and day-of-week numbering.
func (s *Spec) Next(from time.Time) (time.Time, error) {
	return defaultCalculator.Next(s, from)
}
