// Package transform provides pure per-slice transforms. No transform mutates
// its input, and masked (NaN) cells stay masked.
package transform

import (
	"fmt"
	"math"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
)

// Unit conversion and sensor scaling constants.
const (
	MMToInches    = 0.0393701
	InchesToMM    = 25.4
	ThermalScale  = 0.00341802 // Landsat collection 2 ST_B10 scale
	ThermalOffset = 149.0      // Landsat collection 2 ST_B10 offset, kelvin
	KelvinOffset  = 273.15
)

// Func transforms one slice into another.
type Func func(*raster.Slice) (*raster.Slice, error)

// Chain applies fs left to right.
func Chain(fs ...Func) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		out := s
		for _, f := range fs {
			next, err := f(out)
			if err != nil {
				return nil, err
			}
			out = next
		}
		return out, nil
	}
}

// mapBand applies fn cell-wise to one band, writing the result to output.
func mapBand(s *raster.Slice, band, output string, fn func(float64) float64) (*raster.Slice, error) {
	in, err := s.Band(band)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(in))
	for i, v := range in {
		if raster.IsMasked(v) {
			out[i] = v
			continue
		}
		out[i] = fn(v)
	}
	return s.WithBand(output, out)
}

// Scale computes band*mul + add in place of band.
func Scale(band string, mul, add float64) Func {
	return ScaleTo(band, band, mul, add)
}

// ScaleTo computes band*mul + add into output.
func ScaleTo(band, output string, mul, add float64) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		return mapBand(s, band, output, func(v float64) float64 { return v*mul + add })
	}
}

// Unscale inverts Scale.
func Unscale(band string, mul, add float64) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		if mul == 0 {
			return nil, fmt.Errorf("cannot unscale band %q with zero multiplier", band)
		}
		return mapBand(s, band, band, func(v float64) float64 { return (v - add) / mul })
	}
}

// MaskBits masks every band where any listed bit of qaBand is set, then drops qaBand.
// A masked QA cell masks the whole cell.
func MaskBits(qaBand string, bits ...int) Func {
	var mask uint64
	for _, b := range bits {
		mask |= 1 << uint(b)
	}
	return func(s *raster.Slice) (*raster.Slice, error) {
		qa, err := s.Band(qaBand)
		if err != nil {
			return nil, err
		}
		drop := make([]bool, len(qa))
		for i, v := range qa {
			drop[i] = raster.IsMasked(v) || uint64(v)&mask != 0
		}

		out := s.Without(qaBand)
		for _, b := range out.Bands() {
			data := make([]float64, len(b.Data))
			for i, v := range b.Data {
				if drop[i] {
					data[i] = raster.Masked()
				} else {
					data[i] = v
				}
			}
			if out, err = out.WithBand(b.Name, data); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}

// NormalizedDifference computes (a-b)/(a+b) into output. A zero denominator masks the cell.
func NormalizedDifference(a, b, output string) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		x, err := s.Band(a)
		if err != nil {
			return nil, err
		}
		y, err := s.Band(b)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(x))
		for i := range x {
			den := x[i] + y[i]
			if raster.IsMasked(den) || den == 0 {
				out[i] = raster.Masked()
				continue
			}
			out[i] = (x[i] - y[i]) / den
		}
		return s.WithBand(output, out)
	}
}

// Select keeps only the named bands.
func Select(bands ...string) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		return s.Select(bands...)
	}
}

// Rename renames a band.
func Rename(from, to string) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		return s.Rename(from, to)
	}
}

// Clip masks every cell whose center lies outside r.
func Clip(r *region.Region) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		if !r.SameCRS(s.Grid.CRS) {
			return nil, fmt.Errorf("region CRS %s does not match slice CRS %s", r.CRS(), s.Grid.CRS)
		}
		g := s.Grid
		inside := make([]bool, g.Len())
		for row := 0; row < g.Height; row++ {
			for col := 0; col < g.Width; col++ {
				x, y := g.CellCenter(col, row)
				inside[g.Index(col, row)] = r.Contains(x, y)
			}
		}
		out := s
		for _, b := range s.Bands() {
			data := make([]float64, len(b.Data))
			for i, v := range b.Data {
				if inside[i] {
					data[i] = v
				} else {
					data[i] = math.NaN()
				}
			}
			var err error
			if out, err = out.WithBand(b.Name, data); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}
