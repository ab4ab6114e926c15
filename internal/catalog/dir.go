package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/internal/geotiff"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// MetaFile is the optional per-dataset metadata file.
const MetaFile = "dataset.yaml"

var (
	dayPattern   = regexp.MustCompile(`(\d{4})[-_](\d{2})[-_](\d{2})`)
	monthPattern = regexp.MustCompile(`(\d{4})[-_](\d{2})`)
)

// Dir is a catalog over a directory tree laid out as <root>/<dataset>/*.tif.
// Headers are indexed on open; pixels are read on Query.
type Dir struct {
	root     string
	mu       sync.Mutex
	datasets map[string]*dirDataset
}

type dirDataset struct {
	info   schema.DatasetInfo
	scenes []scene
}

type scene struct {
	path  string
	time  time.Time
	grid  raster.Grid
	bands []string
	props map[string]string
}

// datasetMeta is the content of dataset.yaml.
type datasetMeta struct {
	Bands      []string                     `mapstructure:"bands"`
	Properties map[string]string            `mapstructure:"properties"`
	Scenes     map[string]map[string]string `mapstructure:"scenes"`
}

var _ contract.Catalog = &Dir{} // Compile-time check

// OpenDir indexes every dataset directory under root.
func OpenDir(root string) (*Dir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", root, err)
	}
	d := &Dir{root: root, datasets: map[string]*dirDataset{}}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ds, err := indexDataset(filepath.Join(root, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		if ds != nil {
			d.datasets[e.Name()] = ds
		}
	}
	logrus.Debugf("catalog %s: %d datasets", root, len(d.datasets))
	return d, nil
}

func indexDataset(dir, name string) (*dirDataset, error) {
	meta, err := readMeta(dir)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.tif"))
	if err != nil {
		return nil, err
	}
	more, _ := filepath.Glob(filepath.Join(dir, "*.tiff"))
	files = append(files, more...)
	if len(files) == 0 {
		return nil, nil
	}
	sort.Strings(files)

	ds := &dirDataset{info: schema.DatasetInfo{Name: name}}
	for _, path := range files {
		h, err := geotiff.ReadHeaderFile(path)
		if err != nil {
			return nil, err
		}
		if len(meta.Bands) > 0 {
			if len(meta.Bands) != len(h.Bands) {
				return nil, fmt.Errorf("%s has %d bands, %s names %d", path, len(h.Bands), MetaFile, len(meta.Bands))
			}
			h.Bands = meta.Bands
		}
		base := filepath.Base(path)
		t, ok := DateFromName(base)
		if !ok {
			t = h.Time
		}
		sc := scene{path: path, time: t, grid: h.Grid, bands: h.Bands, props: map[string]string{}}
		for k, v := range meta.Properties {
			sc.props[k] = v
		}
		for k, v := range meta.Scenes[strings.ToLower(base)] {
			sc.props[k] = v
		}

		if len(ds.scenes) == 0 {
			ds.info.CRS = h.Grid.CRS
			ds.info.PixelSize = h.Grid.Transform.PixelWidth
		} else if !strings.EqualFold(ds.info.CRS, h.Grid.CRS) {
			return nil, fmt.Errorf("%s CRS %s does not match dataset %s CRS %s", path, h.Grid.CRS, name, ds.info.CRS)
		}
		for _, b := range sc.bands {
			if !slices.Contains(ds.info.Bands, b) {
				ds.info.Bands = append(ds.info.Bands, b)
			}
		}
		if ds.info.First.IsZero() || t.Before(ds.info.First) {
			ds.info.First = t
		}
		if t.After(ds.info.Last) {
			ds.info.Last = t
		}
		ds.scenes = append(ds.scenes, sc)
	}
	ds.info.Slices = len(ds.scenes)
	return ds, nil
}

// readMeta loads dataset.yaml through its own viper instance. A missing file
// yields empty metadata. Keys are case-insensitive.
func readMeta(dir string) (datasetMeta, error) {
	var meta datasetMeta
	path := filepath.Join(dir, MetaFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return meta, nil
	}
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return meta, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := v.Unmarshal(&meta); err != nil {
		return meta, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return meta, nil
}

// DateFromName extracts a date from a file name in the forms YYYY-MM-DD,
// YYYY_MM_DD or YYYY-MM. Month-only names map to the first of the month.
func DateFromName(name string) (time.Time, bool) {
	if m := dayPattern.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t, true
		}
	}
	if m := monthPattern.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("2006-01", m[1]+"-"+m[2]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *Dir) get(dataset string) (*dirDataset, error) {
	ds, ok := d.datasets[dataset]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q in %s", dataset, d.root)
	}
	return ds, nil
}

// Datasets implements the Catalog interface.
func (d *Dir) Datasets(_ context.Context) ([]schema.DatasetInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]schema.DatasetInfo, 0, len(d.datasets))
	for _, ds := range d.datasets {
		out = append(out, ds.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Describe implements the Catalog interface.
func (d *Dir) Describe(_ context.Context, dataset string) (schema.DatasetInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ds, err := d.get(dataset)
	if err != nil {
		return schema.DatasetInfo{}, err
	}
	return ds.info, nil
}

// Grid implements the Catalog interface.
func (d *Dir) Grid(_ context.Context, dataset string, bound orb.Bound) (raster.Grid, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ds, err := d.get(dataset)
	if err != nil {
		return raster.Grid{}, err
	}
	return alignedGrid(ds.scenes[0].grid, bound)
}

// Query implements the Catalog interface.
func (d *Dir) Query(ctx context.Context, q contract.CatalogQuery) ([]*raster.Slice, error) {
	d.mu.Lock()
	ds, err := d.get(q.Dataset)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []*raster.Slice
	for _, sc := range ds.scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !inRange(sc.time, q) || !Matches(sc.props, q.Filters) || !sc.grid.Bound().Intersects(q.Bound) {
			continue
		}
		s, err := geotiff.ReadFile(sc.path, q.Dataset)
		if err != nil {
			return nil, err
		}
		for i, b := range s.Names() {
			if b != sc.bands[i] {
				if s, err = s.Rename(b, sc.bands[i]); err != nil {
					return nil, err
				}
			}
		}
		s = s.WithTime(sc.time)
		s.Properties = maps.Clone(sc.props)
		cropped, ok := s.Crop(q.Bound)
		if !ok {
			continue
		}
		if len(q.Bands) > 0 {
			if cropped, err = cropped.Select(q.Bands...); err != nil {
				return nil, fmt.Errorf("%s: %w", sc.path, err)
			}
		}
		out = append(out, cropped)
	}
	logrus.Debugf("catalog %s: %d of %d scenes match", q.Dataset, len(out), len(ds.scenes))
	return out, nil
}
