// Package change compares two slices on the same grid.
package change

import (
	"fmt"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/schema"
)

// MaskBand names the 0/1 band produced by Mask.Slice.
const MaskBand = "change"

// Cell states of a Mask.
const (
	Invalid int8 = -1
	False   int8 = 0
	True    int8 = 1
)

// Mask is a boolean grid with an explicit invalid state.
type Mask struct {
	Grid       raster.Grid
	Band       string
	From, To   time.Time
	Threshold  float64
	Comparison schema.Comparison
	Cells      []int8
}

func checkPair(a, b *raster.Slice) error {
	if !a.Grid.Equal(b.Grid) {
		return &schema.GridMismatchError{Left: a.Grid.String(), Right: b.Grid.String()}
	}
	return nil
}

// Difference returns a single-band slice holding a-b for band. A cell masked
// in either input is masked in the result.
func Difference(a, b *raster.Slice, band string) (*raster.Slice, error) {
	if err := checkPair(a, b); err != nil {
		return nil, err
	}
	av, err := a.Band(band)
	if err != nil {
		return nil, err
	}
	bv, err := b.Band(band)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(av))
	for i := range av {
		if raster.IsMasked(av[i]) || raster.IsMasked(bv[i]) {
			out[i] = raster.Masked()
			continue
		}
		out[i] = av[i] - bv[i]
	}
	diff := raster.New(a.Dataset, b.Time, a.Grid)
	return diff.WithBand(band, out)
}

// Detect flags cells where a-b compares to threshold by cmp.
func Detect(a, b *raster.Slice, band string, threshold float64, cmp schema.Comparison) (*Mask, error) {
	if _, ok := schema.ValidComparisons[cmp]; !ok {
		return nil, fmt.Errorf("unsupported comparison %q", cmp)
	}
	diff, err := Difference(a, b, band)
	if err != nil {
		return nil, err
	}
	d, _ := diff.Band(band)

	cells := make([]int8, len(d))
	for i, v := range d {
		switch {
		case raster.IsMasked(v):
			cells[i] = Invalid
		case cmp == schema.GreaterThan && v > threshold, cmp == schema.LessThan && v < threshold:
			cells[i] = True
		default:
			cells[i] = False
		}
	}
	return &Mask{
		Grid:       a.Grid,
		Band:       band,
		From:       a.Time,
		To:         b.Time,
		Threshold:  threshold,
		Comparison: cmp,
		Cells:      cells,
	}, nil
}

// Count returns the number of true cells.
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.Cells {
		if c == True {
			n++
		}
	}
	return n
}

// Slice encodes the mask as 0/1 with invalid cells masked.
func (m *Mask) Slice() *raster.Slice {
	data := make([]float64, len(m.Cells))
	for i, c := range m.Cells {
		switch c {
		case Invalid:
			data[i] = raster.Masked()
		case True:
			data[i] = 1
		}
	}
	s, _ := raster.New("change", m.To, m.Grid).WithBand(MaskBand, data)
	return s
}

// TrueArea returns the changed area inside r in square kilometers: the
// native area of every true cell whose center lies in r. A partly masked or
// partly covered block counts only its true cells. The reduction scale only
// bounds the cell budget. The area is missing when no valid cell lies in r.
func (m *Mask) TrueArea(r *region.Region, opts reduce.Options) (schema.Measurement, error) {
	if err := reduce.CheckBudget(m.Grid, r, opts.Scale, opts.MaxCells); err != nil {
		return schema.Missing(), err
	}
	if !r.SameCRS(m.Grid.CRS) {
		return schema.Missing(), fmt.Errorf("region CRS %s does not match mask CRS %s", r.CRS(), m.Grid.CRS)
	}
	area := reduce.PixelArea(m.Grid)
	data := make([]float64, len(m.Cells))
	for row := 0; row < m.Grid.Height; row++ {
		for col := 0; col < m.Grid.Width; col++ {
			i := m.Grid.Index(col, row)
			x, y := m.Grid.CellCenter(col, row)
			switch {
			case m.Cells[i] == Invalid || !r.Contains(x, y):
				data[i] = raster.Masked()
			case m.Cells[i] == True:
				data[i] = area[i] / 1e6
			}
		}
	}
	ws, err := raster.New("change", m.To, m.Grid).WithBand("area_km2", data)
	if err != nil {
		return schema.Missing(), err
	}
	return reduce.Sum(ws, "area_km2")
}

// Summarize describes a mask and its area for reporting.
func (m *Mask) Summarize(area schema.Measurement, layout string) schema.ChangeSummary {
	if layout == "" {
		layout = schema.DefaultDateLayout
	}
	return schema.ChangeSummary{
		Band:       m.Band,
		From:       m.From.Format(layout),
		To:         m.To.Format(layout),
		Threshold:  m.Threshold,
		Comparison: m.Comparison,
		TrueCells:  m.Count(),
		AreaKm2:    area,
	}
}
