package transform

import (
	"math"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/stats"
)

// LSTParams configures the single-channel land surface temperature estimate.
type LSTParams struct {
	Thermal  string // brightness temperature in kelvin
	NIR      string
	Red      string
	Output   string
	NDVISoil float64
	NDVIVeg  float64
}

// DefaultLSTParams matches Landsat 8/9 collection 2 band names.
func DefaultLSTParams() LSTParams {
	return LSTParams{
		Thermal:  "ST_B10",
		NIR:      "SR_B5",
		Red:      "SR_B4",
		Output:   "LST",
		NDVISoil: 0.2,
		NDVIVeg:  0.5,
	}
}

// LandSurfaceTemperature derives LST in celsius from brightness temperature and
// an NDVI based emissivity.
func LandSurfaceTemperature(p LSTParams) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		tb, err := s.Band(p.Thermal)
		if err != nil {
			return nil, err
		}
		nir, err := s.Band(p.NIR)
		if err != nil {
			return nil, err
		}
		red, err := s.Band(p.Red)
		if err != nil {
			return nil, err
		}

		out := make([]float64, len(tb))
		for i := range tb {
			den := nir[i] + red[i]
			if raster.IsMasked(tb[i]) || raster.IsMasked(den) || den == 0 {
				out[i] = math.NaN()
				continue
			}
			ndvi := (nir[i] - red[i]) / den
			pv := math.Pow((ndvi-p.NDVISoil)/(p.NDVIVeg-p.NDVISoil), 2)
			emissivity := 0.004*pv + 0.986
			out[i] = tb[i]/(1+(0.00115*tb[i]/14388)*math.Log(emissivity)) - KelvinOffset
		}
		return s.WithBand(p.Output, out)
	}
}

// FocalMedian replaces each cell with the median of valid cells within a
// square kernel extending radius meters from the center. Masked cells stay masked.
func FocalMedian(band string, radius float64) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		in, err := s.Band(band)
		if err != nil {
			return nil, err
		}
		g := s.Grid
		out := make([]float64, len(in))
		buf := make([]float64, 0, 64)

		for row := 0; row < g.Height; row++ {
			_, lat := g.CellCenter(0, row)
			cw, ch := g.CellSizeMeters(lat)
			rx := int(math.Floor(radius / cw))
			ry := int(math.Floor(radius / ch))

			for col := 0; col < g.Width; col++ {
				center := in[g.Index(col, row)]
				if raster.IsMasked(center) {
					out[g.Index(col, row)] = center
					continue
				}
				buf = buf[:0]
				for dy := -ry; dy <= ry; dy++ {
					r := row + dy
					if r < 0 || r >= g.Height {
						continue
					}
					for dx := -rx; dx <= rx; dx++ {
						c := col + dx
						if c < 0 || c >= g.Width {
							continue
						}
						if v := in[g.Index(c, r)]; !raster.IsMasked(v) {
							buf = append(buf, v)
						}
					}
				}
				out[g.Index(col, row)] = stats.Median(buf)
			}
		}
		return s.WithBand(band, out)
	}
}

// Slope computes terrain slope in degrees from an elevation band in meters
// using Horn's 3x3 method. Edge cells reuse their nearest neighbor and any
// masked neighbor masks the result.
func Slope(band, output string) Func {
	return func(s *raster.Slice) (*raster.Slice, error) {
		z, err := s.Band(band)
		if err != nil {
			return nil, err
		}
		g := s.Grid
		at := func(col, row int) float64 {
			col = min(max(col, 0), g.Width-1)
			row = min(max(row, 0), g.Height-1)
			return z[g.Index(col, row)]
		}

		out := make([]float64, len(z))
		for row := 0; row < g.Height; row++ {
			_, lat := g.CellCenter(0, row)
			cw, ch := g.CellSizeMeters(lat)
			for col := 0; col < g.Width; col++ {
				a, b, c := at(col-1, row-1), at(col, row-1), at(col+1, row-1)
				d, f := at(col-1, row), at(col+1, row)
				gg, h, i := at(col-1, row+1), at(col, row+1), at(col+1, row+1)

				dzdx := ((c + 2*f + i) - (a + 2*d + gg)) / (8 * cw)
				dzdy := ((gg + 2*h + i) - (a + 2*b + c)) / (8 * ch)
				v := math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
				if math.IsNaN(v) || raster.IsMasked(at(col, row)) {
					v = math.NaN()
				}
				out[g.Index(col, row)] = v
			}
		}
		return s.WithBand(output, out)
	}
}
