/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package scheduler

import (
	"time"

	"github.com/diagridio/go-shell-cron/api/errors"
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithLoopLimit sets the number of probes evaluated before a schedule is
// declared unsatisfiable. Values below 1 are ignored.
func WithLoopLimit(limit int) Option {
	return func(c *Calculator) {
		if limit > 0 {
			c.loopLimit = limit
		}
	}
}

// WithSundayFirst numbers the day-of-week field with 0 as Sunday. By default
// 0 is Monday and 6 is Sunday. In both numberings 7 is the same day as 0.
func WithSundayFirst() Option {
	return func(c *Calculator) {
		c.sundayFirst = true
	}
}

// WithLocation evaluates schedules in the given location. When unset, the
// location of the instant passed to Next is used.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) {
		c.loc = loc
	}
}

// Calculator finds the next instant at which a Spec fires using a minute
// granularity forward search bounded by a probe budget.
type Calculator struct {
	loopLimit   int
	sundayFirst bool
	loc         *time.Location
}

// NewCalculator returns a Calculator with the given options applied.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{loopLimit: LoopLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoopLimit returns the probe budget of the Calculator.
func (c *Calculator) LoopLimit() int {
	return c.loopLimit
}

// Location returns the location schedules are evaluated in, or nil when the
// location of the starting instant is used.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Schedule binds the Spec to the Calculator.
func (c *Calculator) Schedule(spec *Spec) Interface {
	return &schedule{spec: spec, calc: c}
}

// Next returns the first instant at or after the minute of from that matches
// spec. The candidate starts at from truncated to the minute and each probe
// either accepts it or advances it to the start of the next day, month, hour
// or minute, in that order of precedence. The search gives up with
// ScheduleUnsatisfiable once the probe budget is spent.
func (c *Calculator) Next(spec *Spec, from time.Time) (time.Time, error) {
	if c.loc != nil {
		from = from.In(c.loc)
	}
	loc := from.Location()

	t := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), from.Minute(), 0, 0, loc)

	for probe := 0; probe < c.loopLimit; probe++ {
		if !c.dayMatches(spec, t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}

		if !spec.month.Contains(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}

		if !spec.hour.Contains(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}

		if !spec.minute.Contains(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}

		return t, nil
	}

	return time.Time{}, errors.NewScheduleUnsatisfiable(spec.String(), c.loopLimit)
}

// dayMatches combines the day-of-month and day-of-week fields. When both are
// restricted a day matches if either does. When only one is restricted, that
// one decides. Whether a field counts as unrestricted depends on the month
// being probed, so it is evaluated on every probe.
func (c *Calculator) dayMatches(spec *Spec, t time.Time) bool {
	daysInMonth := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()

	domWildcard := spec.dayOfMonth.Covers(daysInMonth)
	dowWildcard := true
	for wd := 0; wd < 7; wd++ {
		if !c.weekdayMatches(spec, wd) {
			dowWildcard = false
			break
		}
	}

	switch {
	case domWildcard && dowWildcard:
		return true
	case domWildcard:
		return c.weekdayMatches(spec, c.weekday(t.Weekday()))
	case dowWildcard:
		return spec.dayOfMonth.Contains(t.Day())
	default:
		return spec.dayOfMonth.Contains(t.Day()) ||
			c.weekdayMatches(spec, c.weekday(t.Weekday()))
	}
}

func (c *Calculator) weekday(wd time.Weekday) int {
	if c.sundayFirst {
		return int(wd)
	}
	return (int(wd) + 6) % 7
}

func (c *Calculator) weekdayMatches(spec *Spec, wd int) bool {
	return spec.dayOfWeek.Contains(wd) || (wd == 0 && spec.dayOfWeek.Contains(7))
}

type schedule struct {
	spec *Spec
	calc *Calculator
}

func (s *schedule) Next(from time.Time) (time.Time, error) {
	return s.calc.Next(s.spec, from)
}
