// Package series assembles per-period statistics into an ordered table.
package series

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

// Outcome is what a compute step produced for one period.
type Outcome struct {
	Values map[string]schema.Measurement
	NoData bool // the slice was a sentinel placeholder
}

// ComputeFunc evaluates every statistic for one period.
type ComputeFunc func(ctx context.Context, p dates.Period) (Outcome, error)

// Assembler turns periods into StatisticRecords.
type Assembler struct {
	Layout  string   // label layout; defaults to schema.DefaultDateLayout
	Columns []string // every record carries these keys
}

func (a Assembler) layout() string {
	if a.Layout == "" {
		return schema.DefaultDateLayout
	}
	return a.Layout
}

// StaticLabel labels the single period of a time-invariant dataset.
const StaticLabel = "static"

// Label formats a period start the way records are labeled.
func (a Assembler) Label(p dates.Period) string {
	if p.Start.IsZero() {
		return StaticLabel
	}
	return p.Start.Format(a.layout())
}

// Assemble calls compute once per period, in order. A NoMatchingDataError
// from compute becomes a NoData record with every column missing; any other
// error aborts the whole series.
func (a Assembler) Assemble(ctx context.Context, periods []dates.Period, compute ComputeFunc) ([]schema.StatisticRecord, error) {
	if err := a.checkLabels(periods); err != nil {
		return nil, err
	}

	records := make([]schema.StatisticRecord, 0, len(periods))
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := schema.StatisticRecord{
			Label:  a.Label(p),
			Time:   p.Start,
			Values: make(map[string]schema.Measurement, len(a.Columns)),
		}

		out, err := compute(ctx, p)
		switch {
		case errors.Is(err, schema.ErrNoMatchingData):
			logrus.Debugf("no data for %s: %v", rec.Label, err)
			rec.NoData = true
		case err != nil:
			return nil, fmt.Errorf("failed to compute %s: %w", rec.Label, err)
		default:
			rec.NoData = out.NoData
			for k, v := range out.Values {
				rec.Values[k] = v
			}
		}
		for _, c := range a.Columns {
			if _, ok := rec.Values[c]; !ok {
				rec.Values[c] = schema.Missing()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a Assembler) checkLabels(periods []dates.Period) error {
	seen := make(map[string]struct{}, len(periods))
	for i, p := range periods {
		if i > 0 && !p.Start.After(periods[i-1].Start) {
			return &schema.InvalidRangeError{Start: periods[i-1].Start, End: p.Start, Reason: "periods are not strictly increasing"}
		}
		label := a.Label(p)
		if _, dup := seen[label]; dup {
			return &schema.InvalidRangeError{Start: p.Start, End: p.End, Reason: fmt.Sprintf("label %q is not unique under layout %q", label, a.layout())}
		}
		seen[label] = struct{}{}
	}
	return nil
}

// Column returns one statistic across every record, in order.
func Column(records []schema.StatisticRecord, name string) []schema.Measurement {
	out := make([]schema.Measurement, len(records))
	for i, r := range records {
		out[i] = r.Get(name)
	}
	return out
}
