// Package catalog provides local implementations of contract.Catalog.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
)

// Memory is a catalog held entirely in memory. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	datasets map[string]*memDataset
}

type memDataset struct {
	info   schema.DatasetInfo
	slices []*raster.Slice
}

var _ contract.Catalog = &Memory{} // Compile-time check

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{datasets: map[string]*memDataset{}}
}

// Add stores a slice. The dataset is created on first use, its bands and
// CRS taken from the slice.
func (m *Memory) Add(s *raster.Slice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.datasets[s.Dataset]
	if !ok {
		ds = &memDataset{info: schema.DatasetInfo{
			Name:      s.Dataset,
			Bands:     s.Names(),
			CRS:       s.Grid.CRS,
			PixelSize: s.Grid.Transform.PixelWidth,
		}}
		m.datasets[s.Dataset] = ds
	}
	if !strings.EqualFold(ds.info.CRS, s.Grid.CRS) {
		return fmt.Errorf("slice CRS %s does not match dataset %s CRS %s", s.Grid.CRS, s.Dataset, ds.info.CRS)
	}
	for _, b := range s.Names() {
		if !slices.Contains(ds.info.Bands, b) {
			ds.info.Bands = append(ds.info.Bands, b)
		}
	}
	ds.slices = append(ds.slices, s)
	ds.info.Slices = len(ds.slices)
	if ds.info.First.IsZero() || s.Time.Before(ds.info.First) {
		ds.info.First = s.Time
	}
	if s.Time.After(ds.info.Last) {
		ds.info.Last = s.Time
	}
	return nil
}

func (m *Memory) get(dataset string) (*memDataset, error) {
	ds, ok := m.datasets[dataset]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", dataset)
	}
	return ds, nil
}

// Datasets implements the Catalog interface.
func (m *Memory) Datasets(_ context.Context) ([]schema.DatasetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]schema.DatasetInfo, 0, len(m.datasets))
	for _, ds := range m.datasets {
		out = append(out, ds.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Describe implements the Catalog interface.
func (m *Memory) Describe(_ context.Context, dataset string) (schema.DatasetInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, err := m.get(dataset)
	if err != nil {
		return schema.DatasetInfo{}, err
	}
	return ds.info, nil
}

// Grid implements the Catalog interface.
func (m *Memory) Grid(_ context.Context, dataset string, bound orb.Bound) (raster.Grid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, err := m.get(dataset)
	if err != nil {
		return raster.Grid{}, err
	}
	if len(ds.slices) == 0 {
		return raster.GridFromBounds(bound, ds.info.PixelSize, ds.info.CRS), nil
	}
	return alignedGrid(ds.slices[0].Grid, bound)
}

// alignedGrid crops a reference grid to bound.
func alignedGrid(ref raster.Grid, bound orb.Bound) (raster.Grid, error) {
	col, row, w, h, ok := ref.Window(bound)
	if !ok {
		return raster.Grid{}, fmt.Errorf("bound %v lies outside dataset grid %s", bound, ref)
	}
	return ref.Sub(col, row, w, h), nil
}

// Query implements the Catalog interface.
func (m *Memory) Query(ctx context.Context, q contract.CatalogQuery) ([]*raster.Slice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, err := m.get(q.Dataset)
	if err != nil {
		return nil, err
	}

	var out []*raster.Slice
	for _, s := range ds.slices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !inRange(s.Time, q) || !Matches(s.Properties, q.Filters) {
			continue
		}
		cropped, ok := s.Crop(q.Bound)
		if !ok {
			continue
		}
		if len(q.Bands) > 0 {
			if cropped, err = cropped.Select(q.Bands...); err != nil {
				return nil, err
			}
		}
		out = append(out, cropped)
	}
	return out, nil
}

func inRange(t time.Time, q contract.CatalogQuery) bool {
	if !q.Start.IsZero() && t.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !t.Before(q.End) {
		return false
	}
	return true
}

// Matches reports whether props satisfy every filter. Property names are
// case-insensitive; "contains" treats the value as a comma separated list.
func Matches(props map[string]string, filters []schema.Filter) bool {
	for _, f := range filters {
		v, ok := lookup(props, f.Property)
		if !ok {
			return false
		}
		switch f.Op {
		case schema.FilterContains:
			found := false
			for _, item := range strings.Split(v, ",") {
				if strings.EqualFold(strings.TrimSpace(item), f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if !strings.EqualFold(v, f.Value) {
				return false
			}
		}
	}
	return true
}

func lookup(props map[string]string, key string) (string, bool) {
	if v, ok := props[key]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
