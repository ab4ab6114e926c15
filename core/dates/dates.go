// Package dates expands date ranges into period boundaries.
package dates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/geoseries/schema"
)

// Step is a positive calendar increment.
type Step struct {
	Count int
	Unit  schema.StepUnit
}

// Days returns a day step.
func Days(n int) Step { return Step{Count: n, Unit: schema.DayUnit} }

// Months returns a month step.
func Months(n int) Step { return Step{Count: n, Unit: schema.MonthUnit} }

func (s Step) String() string {
	unit := string(s.Unit)
	if s.Count != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", s.Count, unit)
}

// Valid reports whether the step can advance time.
func (s Step) Valid() bool {
	_, ok := schema.ValidStepUnits[s.Unit]
	return ok && s.Count > 0
}

// Advance returns start moved forward by k steps. Month steps are computed
// from the original start so day-of-month clamping does not accumulate.
func (s Step) Advance(start time.Time, k int) time.Time {
	switch s.Unit {
	case schema.MonthUnit:
		return addMonthsClamped(start, k*s.Count)
	default:
		return start.AddDate(0, 0, k*s.Count)
	}
}

// addMonthsClamped adds months and clamps to the last valid day of the target month.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	last := daysIn(target.Year(), target.Month())
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var stepRe = regexp.MustCompile(`^(\d+)\s*(day|d|week|w|month|mo|year|y)s?$`)

// ParseStep parses strings like "1 day", "14 days", "2 weeks", "1 month" or "14d".
// Weeks become days and years become months.
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := stepRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return Step{}, &schema.InvalidRangeError{Reason: fmt.Sprintf("invalid step %q", s)}
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil || n <= 0 {
		return Step{}, &schema.InvalidRangeError{Reason: fmt.Sprintf("step must be positive, got %q", s)}
	}
	switch matches[2] {
	case "day", "d":
		return Days(n), nil
	case "week", "w":
		return Days(7 * n), nil
	case "month", "mo":
		return Months(n), nil
	default:
		return Months(12 * n), nil
	}
}

// Layouts accepted by ParseDate, most specific first.
var dateLayouts = []string{time.RFC3339, schema.DefaultDateLayout, "2006-01", "2006"}

// ParseDate parses a full date, a year-month or a bare year, in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &schema.InvalidRangeError{Reason: fmt.Sprintf("unparseable date %q", s)}
}

// Expand returns [start, start+step, start+2*step, ...] with every value before end.
func Expand(start, end time.Time, step Step) ([]time.Time, error) {
	if !step.Valid() {
		return nil, &schema.InvalidRangeError{Start: start, End: end, Reason: fmt.Sprintf("step %s is not positive", step)}
	}
	if !end.After(start) {
		return nil, &schema.InvalidRangeError{Start: start, End: end, Reason: "end must be after start"}
	}

	var out []time.Time
	for k := 0; ; k++ {
		t := step.Advance(start, k)
		if !t.Before(end) {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// Explicit parses an explicit list of dates into ordered boundaries.
// The list must already be strictly increasing.
func Explicit(values []string) ([]time.Time, error) {
	if len(values) == 0 {
		return nil, &schema.InvalidRangeError{Reason: "empty date list"}
	}
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Before(out[j]) }) {
		return nil, &schema.InvalidRangeError{Reason: "date list is not in ascending order"}
	}
	for i := 1; i < len(out); i++ {
		if out[i].Equal(out[i-1]) {
			return nil, &schema.InvalidRangeError{Reason: fmt.Sprintf("date %s listed twice", values[i])}
		}
	}
	return out, nil
}

// Period is a half-open interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start.Format(schema.DefaultDateLayout), p.End.Format(schema.DefaultDateLayout))
}

// Around returns the symmetric window [t-pad, t+pad).
func Around(t time.Time, pad Step) Period {
	return Period{Start: pad.Advance(t, -1), End: pad.Advance(t, 1)}
}

// Windows pairs each boundary with the next step; the last window is cut at end.
// A zero end leaves the last window a full step long.
func Windows(boundaries []time.Time, step Step, end time.Time) []Period {
	out := make([]Period, len(boundaries))
	for i, b := range boundaries {
		e := step.Advance(b, 1)
		if i+1 < len(boundaries) && boundaries[i+1].Before(e) {
			e = boundaries[i+1]
		}
		if !end.IsZero() && end.Before(e) {
			e = end
		}
		out[i] = Period{Start: b, End: e}
	}
	return out
}
