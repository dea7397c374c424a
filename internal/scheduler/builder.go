/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package scheduler

import (
	"time"

	"k8s.io/utils/clock"
)

// BuilderOptions are the options for creating a new Builder.
type BuilderOptions struct {
	// Clock is the clock used to get the current time. Used for manipulating
	// time in tests.
	Clock clock.Clock

	// Calculator computes fire instants. Defaults to NewCalculator().
	Calculator *Calculator
}

// Builder parses schedule expressions and computes their next fire instant
// relative to the current time.
type Builder struct {
	clock clock.Clock
	calc  *Calculator
}

// NewBuilder creates a new scheduler builder.
func NewBuilder(opts BuilderOptions) *Builder {
	b := &Builder{
		clock: opts.Clock,
		calc:  opts.Calculator,
	}
	if b.clock == nil {
		b.clock = clock.RealClock{}
	}
	if b.calc == nil {
		b.calc = NewCalculator()
	}
	return b
}

// Parse parses the given expression into a schedule spec.
func (b *Builder) Parse(expr string) (*Spec, error) {
	return Parse(expr)
}

// Validate returns an error if the expression is malformed or can never
// fire from the current time.
func (b *Builder) Validate(expr string) error {
	spec, err := Parse(expr)
	if err != nil {
		return err
	}
	_, err = b.Next(spec)
	return err
}

// Next returns the next fire instant of spec at or after the current minute.
func (b *Builder) Next(spec *Spec) (time.Time, error) {
	return b.calc.Next(spec, b.clock.Now())
}

// NextAfter returns the next fire instant of spec at or after from.
func (b *Builder) NextAfter(spec *Spec, from time.Time) (time.Time, error) {
	return b.calc.Next(spec, from)
}

// Upcoming returns up to n consecutive fire instants of spec, starting at or
// after from. A schedule that becomes unsatisfiable stops the sequence and
// its error is returned with the instants found so far.
func (b *Builder) Upcoming(spec *Spec, from time.Time, n int) ([]time.Time, error) {
	fires := make([]time.Time, 0, n)
	for len(fires) < n {
		next, err := b.calc.Next(spec, from)
		if err != nil {
			return fires, err
		}
		fires = append(fires, next)
		from = next.Add(time.Minute)
	}
	return fires, nil
}

// Clock returns the clock used by the builder.
func (b *Builder) Clock() clock.Clock {
	return b.clock
}

// Calculator returns the calculator used by the builder.
func (b *Builder) Calculator() *Calculator {
	return b.calc
}
