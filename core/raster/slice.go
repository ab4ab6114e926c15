package raster

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
)

// Band is a named layer of cell values. NaN marks a masked cell.
type Band struct {
	Name string
	Data []float64
}

// Slice is one time step of a dataset: a grid with named bands.
//
// Slices are treated as immutable. Every method that changes content returns a
// new Slice; band data arrays are shared between slices and must never be
// written after construction.
type Slice struct {
	Dataset    string
	Time       time.Time
	Grid       Grid
	Properties map[string]string
	Sentinel   bool

	bands []Band
}

// New returns an empty slice on grid g.
func New(dataset string, t time.Time, g Grid) *Slice {
	return &Slice{Dataset: dataset, Time: t, Grid: g, Properties: map[string]string{}}
}

// Constant returns a slice whose named bands all hold value. Used for
// sentinel placeholders.
func Constant(dataset string, t time.Time, g Grid, bands []string, value float64) *Slice {
	s := New(dataset, t, g)
	for _, name := range bands {
		data := make([]float64, g.Len())
		for i := range data {
			data[i] = value
		}
		s.bands = append(s.bands, Band{Name: name, Data: data})
	}
	return s
}

// IsMasked reports whether a cell value is masked.
func IsMasked(v float64) bool { return math.IsNaN(v) }

// Masked returns the value used for masked cells.
func Masked() float64 { return math.NaN() }

// shallow copies the slice header, the band list and properties.
func (s *Slice) shallow() *Slice {
	out := *s
	out.bands = append([]Band(nil), s.bands...)
	out.Properties = maps.Clone(s.Properties)
	if out.Properties == nil {
		out.Properties = map[string]string{}
	}
	return &out
}

// Names returns band names in order.
func (s *Slice) Names() []string {
	names := make([]string, len(s.bands))
	for i, b := range s.bands {
		names[i] = b.Name
	}
	return names
}

// Bands returns the bands in order.
func (s *Slice) Bands() []Band { return append([]Band(nil), s.bands...) }

// Has reports whether the slice carries a band.
func (s *Slice) Has(name string) bool {
	_, ok := s.find(name)
	return ok
}

func (s *Slice) find(name string) (int, bool) {
	for i, b := range s.bands {
		if b.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Band returns the data of a band.
func (s *Slice) Band(name string) ([]float64, error) {
	i, ok := s.find(name)
	if !ok {
		return nil, &schema.BandNotFoundError{Dataset: s.Dataset, Band: name}
	}
	return s.bands[i].Data, nil
}

// WithBand returns a copy with the band added or replaced.
func (s *Slice) WithBand(name string, data []float64) (*Slice, error) {
	if len(data) != s.Grid.Len() {
		return nil, fmt.Errorf("band %q has %d cells, grid has %d", name, len(data), s.Grid.Len())
	}
	out := s.shallow()
	if i, ok := out.find(name); ok {
		out.bands[i] = Band{Name: name, Data: data}
	} else {
		out.bands = append(out.bands, Band{Name: name, Data: data})
	}
	return out, nil
}

// Without returns a copy lacking the named band. Missing bands are ignored.
func (s *Slice) Without(name string) *Slice {
	out := s.shallow()
	if i, ok := out.find(name); ok {
		out.bands = append(out.bands[:i], out.bands[i+1:]...)
	}
	return out
}

// Select returns a copy holding only the named bands, in the order given.
func (s *Slice) Select(names ...string) (*Slice, error) {
	out := s.shallow()
	out.bands = make([]Band, 0, len(names))
	for _, name := range names {
		data, err := s.Band(name)
		if err != nil {
			return nil, err
		}
		out.bands = append(out.bands, Band{Name: name, Data: data})
	}
	return out, nil
}

// Rename returns a copy with a band renamed.
func (s *Slice) Rename(from, to string) (*Slice, error) {
	i, ok := s.find(from)
	if !ok {
		return nil, &schema.BandNotFoundError{Dataset: s.Dataset, Band: from}
	}
	out := s.shallow()
	out.bands[i] = Band{Name: to, Data: s.bands[i].Data}
	return out, nil
}

// WithTime returns a copy tagged with a different timestamp.
func (s *Slice) WithTime(t time.Time) *Slice {
	out := s.shallow()
	out.Time = t
	return out
}

// MaskedFraction returns the share of masked cells in a band.
func (s *Slice) MaskedFraction(name string) (float64, error) {
	data, err := s.Band(name)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 1, nil
	}
	n := 0
	for _, v := range data {
		if IsMasked(v) {
			n++
		}
	}
	return float64(n) / float64(len(data)), nil
}

// Crop returns the part of s overlapping b. ok is false when nothing overlaps.
func (s *Slice) Crop(b orb.Bound) (*Slice, bool) {
	col, row, w, h, ok := s.Grid.Window(b)
	if !ok {
		return nil, false
	}
	if col == 0 && row == 0 && w == s.Grid.Width && h == s.Grid.Height {
		return s, true
	}
	out := s.shallow()
	out.Grid = s.Grid.Sub(col, row, w, h)
	for i, band := range out.bands {
		data := make([]float64, w*h)
		for r := 0; r < h; r++ {
			src := (row+r)*s.Grid.Width + col
			copy(data[r*w:(r+1)*w], band.Data[src:src+w])
		}
		out.bands[i] = Band{Name: band.Name, Data: data}
	}
	return out, true
}
