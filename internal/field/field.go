/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package field

import (
	"strconv"
	"strings"

	"github.com/diagridio/go-shell-cron/api/errors"
)

// Constraint is the inclusive range of values a cron field slot accepts.
type Constraint struct {
	Name string
	Min  int
	Max  int
}

var (
	Minute     = Constraint{Name: "minute", Min: 0, Max: 59}
	Hour       = Constraint{Name: "hour", Min: 0, Max: 23}
	DayOfMonth = Constraint{Name: "day-of-month", Min: 1, Max: 31}
	Month      = Constraint{Name: "month", Min: 1, Max: 12}

	// DayOfWeek accepts 0-7 where 0 and 7 name the same day.
	DayOfWeek = Constraint{Name: "day-of-week", Min: 0, Max: 7}
)

// Field is the set of values a parsed cron field matches. Values are held as a
// bit set, so iteration is always ascending and duplicate free.
type Field struct {
	raw        string
	constraint Constraint
	bits       uint64
}

// Parse parses a single raw cron field against the given constraint.
// A field is a comma separated list of items. Each item is a wildcard (`*` or
// `?`), an integer `N`, or a range `A-B`, optionally suffixed by `/S` to take
// every S-th value from the lower bound of the item's range.
func Parse(raw string, c Constraint) (Field, error) {
	f := Field{raw: raw, constraint: c}

	for _, item := range strings.Split(raw, ",") {
		bits, err := parseItem(raw, item, c)
		if err != nil {
			return Field{}, err
		}
		f.bits |= bits
	}

	if f.bits == 0 {
		return Field{}, errors.NewInvalidFieldSyntax(raw, "field matches no values")
	}

	return f, nil
}

func parseItem(raw, item string, c Constraint) (uint64, error) {
	if len(item) == 0 {
		return 0, errors.NewInvalidFieldSyntax(raw, "empty list item")
	}

	base, stepStr, hasStep := strings.Cut(item, "/")

	step := 1
	if hasStep {
		var err error
		step, err = number(raw, stepStr, c)
		if err != nil {
			return 0, err
		}
		if step <= 0 {
			return 0, errors.NewInvalidFieldSyntax(raw, "step must be a positive integer")
		}
	}

	var lo, hi int
	switch {
	case base == "*" || base == "?":
		lo, hi = c.Min, c.Max

	case strings.Contains(base, "-"):
		from, to, _ := strings.Cut(base, "-")
		var err error
		if lo, err = number(raw, from, c); err != nil {
			return 0, err
		}
		if hi, err = number(raw, to, c); err != nil {
			return 0, err
		}
		if lo > hi {
			return 0, errors.NewInvalidFieldSyntax(raw, "range start '"+from+"' is after range end '"+to+"'")
		}

	default:
		n, err := number(raw, base, c)
		if err != nil {
			return 0, err
		}
		lo, hi = n, n
	}

	if lo < c.Min {
		return 0, errors.NewValueOutOfRange(c.Name, lo, c.Min, c.Max)
	}
	if hi > c.Max {
		return 0, errors.NewValueOutOfRange(c.Name, hi, c.Min, c.Max)
	}

	var bits uint64
	for v := lo; v <= hi; v += step {
		bits |= 1 << uint(v)
	}

	return bits, nil
}

// number parses a non-negative decimal integer. Signs are rejected so that
// `-` only ever acts as the range separator.
func number(raw, s string, c Constraint) (int, error) {
	if len(s) == 0 {
		return 0, errors.NewInvalidFieldSyntax(raw, "missing number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.NewInvalidFieldSyntax(raw, "'"+s+"' is not a number")
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// All digits but too large for an int.
		return 0, errors.NewValueOutOfRange(c.Name, c.Max+1, c.Min, c.Max)
	}

	return n, nil
}

// Contains reports whether v is a member of the field.
func (f Field) Contains(v int) bool {
	if v < 0 || v > 63 {
		return false
	}
	return f.bits&(1<<uint(v)) != 0
}

// Values returns the members of the field in ascending order.
func (f Field) Values() []int {
	values := make([]int, 0, f.Len())
	for v := f.constraint.Min; v <= f.constraint.Max; v++ {
		if f.Contains(v) {
			values = append(values, v)
		}
	}
	return values
}

// Len returns the number of members of the field.
func (f Field) Len() int {
	n := 0
	for b := f.bits; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// Covers reports whether every value from the constraint minimum up to and
// including upTo is a member of the field. It is used to decide whether a
// field behaves as a wildcard in a given calendar context, for example the
// number of days of the month being probed.
func (f Field) Covers(upTo int) bool {
	for v := f.constraint.Min; v <= upTo; v++ {
		if !f.Contains(v) {
			return false
		}
	}
	return true
}

// Constraint returns the constraint the field was parsed against.
func (f Field) Constraint() Constraint {
	return f.constraint
}

func (f Field) String() string {
	return f.raw
}
