// Package source fetches and composites raster slices from a catalog.
package source

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/core/stats"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

// Request describes what to fetch for every period of a run.
type Request struct {
	Datasets  []string // merged; the first names the result
	Bands     []string
	Region    *region.Region
	Filters   []schema.Filter
	Padding   dates.Step // zero means filter by the period itself
	Composite schema.Composite

	// Prepare runs on every scene before compositing, e.g. cloud masking.
	Prepare func(*raster.Slice) (*raster.Slice, error)
}

// Fetcher returns the composite slice for one period. ok is false when
// nothing matched.
type Fetcher interface {
	FetchPeriod(ctx context.Context, req Request, p dates.Period) (s *raster.Slice, ok bool, err error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request, p dates.Period) (*raster.Slice, bool, error)

// FetchPeriod implements Fetcher.
func (f FetcherFunc) FetchPeriod(ctx context.Context, req Request, p dates.Period) (*raster.Slice, bool, error) {
	return f(ctx, req, p)
}

// Source reads from a catalog.
type Source struct {
	catalog contract.Catalog
}

var _ Fetcher = &Source{} // Compile-time check

// New returns a Source over c.
func New(c contract.Catalog) *Source {
	return &Source{catalog: c}
}

// Validate checks that every requested band exists in every dataset.
func (s *Source) Validate(ctx context.Context, req Request) error {
	if len(req.Datasets) == 0 {
		return fmt.Errorf("no dataset requested")
	}
	if req.Region == nil {
		return fmt.Errorf("no region given")
	}
	for _, ds := range req.Datasets {
		info, err := s.catalog.Describe(ctx, ds)
		if err != nil {
			return fmt.Errorf("failed to describe dataset %q: %w", ds, err)
		}
		for _, b := range req.Bands {
			if !slices.Contains(info.Bands, b) {
				return &schema.BandNotFoundError{Dataset: ds, Band: b}
			}
		}
	}
	return nil
}

// Fetch returns every slice inside window, ordered by time then dataset.
func (s *Source) Fetch(ctx context.Context, req Request, window dates.Period) ([]*raster.Slice, error) {
	if err := s.Validate(ctx, req); err != nil {
		return nil, err
	}

	var out []*raster.Slice
	for _, ds := range req.Datasets {
		found, err := s.catalog.Query(ctx, contract.CatalogQuery{
			Dataset: ds,
			Bands:   req.Bands,
			Bound:   req.Region.Bound(),
			Start:   window.Start,
			End:     window.End,
			Filters: req.Filters,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %q for %s: %w", ds, window, err)
		}
		for _, sl := range found {
			if req.Prepare != nil {
				prepared, err := req.Prepare(sl)
				if err != nil {
					return nil, fmt.Errorf("failed to prepare %s scene at %s: %w", ds, sl.Time.Format(schema.DefaultDateLayout), err)
				}
				sl = prepared
			}
			out = append(out, sl)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Dataset < out[j].Dataset
	})
	return out, nil
}

// Window returns the catalog filter window used for a period.
func (req Request) Window(p dates.Period) dates.Period {
	if req.Padding.Count > 0 {
		return dates.Around(p.Start, req.Padding)
	}
	return p
}

// FetchPeriod composites every slice in the period's window and tags the
// result with the period start.
func (s *Source) FetchPeriod(ctx context.Context, req Request, p dates.Period) (*raster.Slice, bool, error) {
	window := req.Window(p)
	found, err := s.Fetch(ctx, req, window)
	if err != nil {
		return nil, false, err
	}
	if len(found) == 0 {
		logrus.Debugf("no slices in %v for %s", req.Datasets, window)
		return nil, false, nil
	}
	logrus.Debugf("compositing %d slice(s) in %s with %s", len(found), window, compositeOf(req))
	out, err := Composite(found, compositeOf(req), p.Start)
	if err != nil {
		return nil, false, err
	}
	out.Dataset = req.Datasets[0]
	return out, true, nil
}

func compositeOf(req Request) schema.Composite {
	if req.Composite == "" {
		return schema.MedianComposite
	}
	return req.Composite
}

// Composite collapses slices on one grid into a single slice at time t.
// Per-pixel reducers skip masked values; a cell masked in every input stays masked.
func Composite(in []*raster.Slice, kind schema.Composite, t time.Time) (*raster.Slice, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("nothing to composite")
	}
	grid := in[0].Grid
	for _, s := range in[1:] {
		if !s.Grid.Equal(grid) {
			return nil, &schema.GridMismatchError{Left: grid.String(), Right: s.Grid.String()}
		}
	}

	switch kind {
	case schema.FirstComposite:
		return earliest(in).WithTime(t), nil
	case schema.MostRecentComposite:
		return latest(in).WithTime(t), nil
	}

	out := raster.New(in[0].Dataset, t, grid)
	buf := make([]float64, 0, len(in))
	for _, name := range in[0].Names() {
		layers := make([][]float64, len(in))
		for i, s := range in {
			data, err := s.Band(name)
			if err != nil {
				return nil, err
			}
			layers[i] = data
		}
		data := make([]float64, grid.Len())
		for cell := range data {
			buf = buf[:0]
			for _, layer := range layers {
				if v := layer[cell]; !raster.IsMasked(v) {
					buf = append(buf, v)
				}
			}
			data[cell] = stats.Composite(kind, buf)
		}
		var err error
		if out, err = out.WithBand(name, data); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func earliest(in []*raster.Slice) *raster.Slice {
	best := in[0]
	for _, s := range in[1:] {
		if s.Time.Before(best.Time) {
			best = s
		}
	}
	return best
}

func latest(in []*raster.Slice) *raster.Slice {
	best := in[0]
	for _, s := range in[1:] {
		if s.Time.After(best.Time) {
			best = s
		}
	}
	return best
}
