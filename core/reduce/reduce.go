// Package reduce turns a raster band over a region into a single statistic.
package reduce

import (
	"fmt"
	"math"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/core/stats"
	"github.com/huangsam/geoseries/schema"
)

// Options controls the resolution and budget of a reduction.
type Options struct {
	Scale    float64 // meters; zero uses the native resolution
	MaxCells int64   // zero disables the budget
}

func scaleOr(g raster.Grid, scale float64) float64 {
	if scale <= 0 {
		return g.NativeScale()
	}
	return scale
}

// CellCount estimates how many cells of size scale the region's bounding box
// covers. It reads no pixel data.
func CellCount(g raster.Grid, r *region.Region, scale float64) int64 {
	scale = scaleOr(g, scale)
	b := r.Bound()
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if g.Geographic() {
		lat := b.Center()[1]
		w *= raster.MetersPerDegree * math.Cos(lat*math.Pi/180)
		h *= raster.MetersPerDegree
	}
	nx := int64(math.Max(1, math.Ceil(w/scale)))
	ny := int64(math.Max(1, math.Ceil(h/scale)))
	return nx * ny
}

// CheckBudget fails when the estimated cell count exceeds maxCells.
func CheckBudget(g raster.Grid, r *region.Region, scale float64, maxCells int64) error {
	if maxCells <= 0 {
		return nil
	}
	if n := CellCount(g, r, scale); n > maxCells {
		return &schema.CellBudgetExceededError{Estimated: n, Budget: maxCells, Scale: scaleOr(g, scale)}
	}
	return nil
}

// factors returns how many native cells make up one block at scale.
func factors(g raster.Grid, scale float64) (int, int) {
	cw, ch := g.CellSizeMeters(g.Bound().Center()[1])
	kx := max(1, int(math.Round(scale/cw)))
	ky := max(1, int(math.Round(scale/ch)))
	return kx, ky
}

// Resample block-averages one band to scale meters. Only valid native cells
// whose centers fall inside r contribute; blocks with no such cell are masked.
// A nil r keeps every cell. The result holds a single band with the same name
// on the coarser grid.
func Resample(s *raster.Slice, band string, r *region.Region, scale float64) (*raster.Slice, error) {
	if r != nil && !r.SameCRS(s.Grid.CRS) {
		return nil, fmt.Errorf("region CRS %s does not match slice CRS %s", r.CRS(), s.Grid.CRS)
	}
	in, err := s.Band(band)
	if err != nil {
		return nil, err
	}
	g := s.Grid
	kx, ky := factors(g, scaleOr(g, scale))

	out := raster.Grid{
		Width:  (g.Width + kx - 1) / kx,
		Height: (g.Height + ky - 1) / ky,
		Transform: raster.GeoTransform{
			OriginX:     g.Transform.OriginX,
			OriginY:     g.Transform.OriginY,
			PixelWidth:  g.Transform.PixelWidth * float64(kx),
			PixelHeight: g.Transform.PixelHeight * float64(ky),
		},
		CRS: g.CRS,
	}
	sum := make([]float64, out.Len())
	n := make([]int, out.Len())
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := in[g.Index(col, row)]
			if raster.IsMasked(v) {
				continue
			}
			if r != nil {
				if x, y := g.CellCenter(col, row); !r.Contains(x, y) {
					continue
				}
			}
			i := out.Index(col/kx, row/ky)
			sum[i] += v
			n[i]++
		}
	}
	data := make([]float64, out.Len())
	for i := range data {
		if n[i] == 0 {
			data[i] = raster.Masked()
		} else {
			data[i] = sum[i] / float64(n[i])
		}
	}

	res := raster.New(s.Dataset, s.Time, out)
	res.Sentinel = s.Sentinel
	return res.WithBand(band, data)
}

// ResampleAll block-averages every band of s to scale meters with Resample.
func ResampleAll(s *raster.Slice, r *region.Region, scale float64) (*raster.Slice, error) {
	var out *raster.Slice
	for _, name := range s.Names() {
		b, err := Resample(s, name, r, scale)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = b
			for k, v := range s.Properties {
				out.Properties[k] = v
			}
			continue
		}
		data, _ := b.Band(name)
		if out, err = out.WithBand(name, data); err != nil {
			return nil, err
		}
	}
	if out == nil {
		return s, nil
	}
	return out, nil
}

// Reduce applies one statistic to a band over the region.
func Reduce(s *raster.Slice, spec schema.StatisticSpec, r *region.Region, opts Options) (schema.Measurement, error) {
	if _, ok := schema.ValidStatistics[spec.Stat]; !ok {
		return schema.Missing(), fmt.Errorf("unsupported statistic %q", spec.Stat)
	}
	if err := CheckBudget(s.Grid, r, opts.Scale, opts.MaxCells); err != nil {
		return schema.Missing(), err
	}
	coarse, err := Resample(s, spec.Band, r, opts.Scale)
	if err != nil {
		return schema.Missing(), err
	}
	data, _ := coarse.Band(spec.Band)
	return measure(spec, data)
}

func measure(spec schema.StatisticSpec, data []float64) (schema.Measurement, error) {
	values := stats.Valid(nil, data)
	if len(values) == 0 {
		return schema.Missing(), nil
	}
	v, ok, err := stats.Apply(spec.Stat, values, spec.Threshold)
	if err != nil || !ok {
		return schema.Missing(), err
	}
	return schema.Valued(v), nil
}

// ReduceAll evaluates several statistics, resampling each band once.
// Results are keyed by spec name, falling back to "<band>_<stat>".
func ReduceAll(s *raster.Slice, specs []schema.StatisticSpec, r *region.Region, opts Options) (map[string]schema.Measurement, error) {
	if err := CheckBudget(s.Grid, r, opts.Scale, opts.MaxCells); err != nil {
		return nil, err
	}
	resampled := map[string][]float64{}
	out := make(map[string]schema.Measurement, len(specs))
	for _, spec := range specs {
		data, ok := resampled[spec.Band]
		if !ok {
			coarse, err := Resample(s, spec.Band, r, opts.Scale)
			if err != nil {
				return nil, err
			}
			data, _ = coarse.Band(spec.Band)
			resampled[spec.Band] = data
		}
		m, err := measure(spec, data)
		if err != nil {
			return nil, err
		}
		out[ColumnName(spec)] = m
	}
	return out, nil
}

// ColumnName is the record key for a statistic spec.
func ColumnName(spec schema.StatisticSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return spec.Band + "_" + string(spec.Stat)
}

// PixelArea returns the area of every cell in square meters.
func PixelArea(g raster.Grid) []float64 {
	out := make([]float64, g.Len())
	for row := 0; row < g.Height; row++ {
		_, lat := g.CellCenter(0, row)
		w, h := g.CellSizeMeters(lat)
		for col := 0; col < g.Width; col++ {
			out[g.Index(col, row)] = w * h
		}
	}
	return out
}

// Sum adds every valid cell of band with no resampling or clipping.
func Sum(s *raster.Slice, band string) (schema.Measurement, error) {
	data, err := s.Band(band)
	if err != nil {
		return schema.Missing(), err
	}
	return measure(schema.StatisticSpec{Band: band, Stat: schema.SumStat}, data)
}
