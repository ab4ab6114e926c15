package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/geoseries/core/change"
	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/export"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/core/series"
	"github.com/huangsam/geoseries/core/source"
	"github.com/huangsam/geoseries/core/transform"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators a plan runs against. Only Catalog is required.
type Deps struct {
	Catalog  contract.Catalog
	Exports  contract.ExportService
	Store    contract.JobStore
	Renderer contract.Renderer
	RunID    int64

	// Progress is called after each period with the number done so far.
	Progress func(done, total int)
}

// Result is everything a run produced.
type Result struct {
	Series   schema.SeriesResult
	Change   *schema.ChangeSummary
	Jobs     []schema.JobHandle
	Previews []string
	Driver   *export.Driver // nil when nothing was exported
}

// Materialize runs the plan: fetch, transform, reduce, assemble, change
// detection, export submission and previews, in that order. It returns once
// exports are submitted; use Result.Driver to wait for them. Single empty
// periods become NoData records, but a run in which no period found data
// fails with a NoMatchingDataError unless the recipe substitutes sentinels.
func (p *Plan) Materialize(ctx context.Context, deps Deps) (*Result, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("no catalog configured")
	}
	rec := p.Recipe
	src := source.New(deps.Catalog)
	req := source.Request{
		Datasets:  p.Datasets(),
		Bands:     rec.Bands,
		Region:    p.Region,
		Filters:   rec.Filters,
		Padding:   p.Padding,
		Composite: p.Composite,
		Prepare:   p.prepare,
	}
	if err := src.Validate(ctx, req); err != nil {
		return nil, err
	}

	var fetcher source.Fetcher = source.Require(src)
	if rec.Sentinel {
		fill := rec.SentinelFill
		if fill == 0 {
			fill = schema.DefaultSentinelFill
		}
		fetcher = source.WithSentinel(src, deps.Catalog, fill)
	}

	slices := make([]*raster.Slice, 0, len(p.Periods))
	opts := reduce.Options{Scale: rec.Scale, MaxCells: rec.MaxCells}
	done := 0
	compute := func(ctx context.Context, period dates.Period) (series.Outcome, error) {
		defer func() {
			done++
			if deps.Progress != nil {
				deps.Progress(done, len(p.Periods))
			}
		}()
		s, _, err := fetcher.FetchPeriod(ctx, req, period)
		if err != nil {
			return series.Outcome{}, err
		}
		placeholder := s.Sentinel
		if s, err = p.transform(s); err != nil {
			return series.Outcome{}, err
		}
		s.Sentinel = s.Sentinel || placeholder
		slices = append(slices, s)
		if placeholder {
			return series.Outcome{NoData: true}, nil
		}
		if len(rec.Statistics) == 0 {
			return series.Outcome{}, nil
		}
		values, err := reduce.ReduceAll(s, rec.Statistics, p.Region, opts)
		if err != nil {
			return series.Outcome{}, err
		}
		return series.Outcome{Values: values}, nil
	}

	records, err := p.assembler.Assemble(ctx, p.Periods, compute)
	if err != nil {
		return nil, err
	}
	if !rec.Sentinel && allNoData(records) {
		first, last := req.Window(p.Periods[0]), req.Window(p.Periods[len(p.Periods)-1])
		return nil, &schema.NoMatchingDataError{Dataset: rec.Dataset, Start: first.Start, End: last.End}
	}
	res := &Result{Series: schema.SeriesResult{
		Recipe:  rec.Name,
		Dataset: rec.Dataset,
		Columns: p.Columns,
		Records: records,
	}}
	logrus.Infof("assembled %d records for %s", len(records), rec.Name)

	var diff *raster.Slice
	if rec.Change != nil {
		res.Change, diff, err = p.detect(slices, opts)
		if err != nil {
			return nil, err
		}
	}

	if deps.Exports != nil {
		jobs, err := p.exportJobs(slices, diff, &res.Series)
		if err != nil {
			return nil, err
		}
		if len(jobs) > 0 {
			res.Driver = export.NewDriver(deps.Exports, deps.Store, deps.RunID)
			if res.Jobs, err = res.Driver.Submit(ctx, jobs); err != nil {
				return nil, err
			}
		}
	}

	if deps.Renderer != nil && rec.Preview != nil {
		res.Previews = p.preview(ctx, deps.Renderer, slices, res.Series)
	}
	return res, nil
}

// allNoData reports whether no period produced a slice.
func allNoData(records []schema.StatisticRecord) bool {
	for _, r := range records {
		if !r.NoData {
			return false
		}
	}
	return len(records) > 0
}

// detect compares the first and last slice. A sentinel at either end leaves
// the area missing rather than reporting the fill value as change.
func (p *Plan) detect(slices []*raster.Slice, opts reduce.Options) (*schema.ChangeSummary, *raster.Slice, error) {
	c := p.Recipe.Change
	if len(slices) < 2 {
		logrus.Warnf("change detection needs two slices, have %d", len(slices))
		return nil, nil, nil
	}
	first, last := slices[0], slices[len(slices)-1]
	if first.Sentinel || last.Sentinel {
		logrus.Warnf("skipping change area: %s or %s has no data", first.Time.Format(schema.DefaultDateLayout), last.Time.Format(schema.DefaultDateLayout))
		return &schema.ChangeSummary{
			Band:       c.Band,
			From:       first.Time.Format(schema.DefaultDateLayout),
			To:         last.Time.Format(schema.DefaultDateLayout),
			Threshold:  c.Threshold,
			Comparison: c.Comparison,
			AreaKm2:    schema.Missing(),
		}, nil, nil
	}
	mask, err := change.Detect(first, last, c.Band, c.Threshold, c.Comparison)
	if err != nil {
		return nil, nil, err
	}
	area, err := mask.TrueArea(p.Region, opts)
	if err != nil {
		return nil, nil, err
	}
	sum := mask.Summarize(area, schema.DefaultDateLayout)

	var diff *raster.Slice
	if c.Export {
		if diff, err = change.Difference(first, last, c.Band); err != nil {
			return nil, nil, err
		}
		if diff, err = diff.Rename(c.Band, change.MaskBand); err != nil {
			return nil, nil, err
		}
	}
	return &sum, diff, nil
}

func (p *Plan) exportJobs(slices []*raster.Slice, diff *raster.Slice, table *schema.SeriesResult) ([]contract.ExportJob, error) {
	rec := p.Recipe
	params := schema.ExportParams{
		Scale:    rec.Export.Scale,
		CRS:      rec.Export.CRS,
		MaxCells: rec.Export.MaxCells,
	}
	clip := transform.Clip(p.Region)
	var jobs []contract.ExportJob

	image := func(name string, s *raster.Slice) error {
		clipped, err := clip(s)
		if err != nil {
			return err
		}
		prm := params
		prm.Format = schema.GeoTIFFFormat
		jobs = append(jobs, contract.ExportJob{Name: name, Folder: rec.Export.Folder, Image: clipped, Region: p.Region, Params: prm})
		return nil
	}

	if rec.Export.Images {
		for _, s := range slices {
			for _, item := range imageNames(rec, s) {
				sel, err := s.Select(item.bands...)
				if err != nil {
					return nil, err
				}
				if err := image(item.name, sel); err != nil {
					return nil, err
				}
			}
		}
	}
	if diff != nil {
		if err := image(changeName(rec), diff); err != nil {
			return nil, err
		}
	}
	if rec.Export.Table {
		prm := params
		prm.Format = tableFormat(rec)
		jobs = append(jobs, contract.ExportJob{Name: tableName(rec), Folder: rec.Export.Folder, Table: table, Params: prm})
	}
	return jobs, nil
}

type namedBands struct {
	name  string
	bands []string
}

func imagePattern(rec schema.Recipe) string {
	if rec.Export.ImageName != "" {
		return rec.Export.ImageName
	}
	layout := rec.Export.DateLayout
	if layout == "" {
		layout = schema.DefaultDateLayout
	}
	return prefix(rec) + layout
}

func prefix(rec schema.Recipe) string {
	if rec.Export.ImagePrefix != "" {
		return rec.Export.ImagePrefix
	}
	return rec.Name + "_"
}

// imageNames returns the file name and band subset of every image a slice
// exports to.
func imageNames(rec schema.Recipe, s *raster.Slice) []namedBands {
	layout := rec.Export.DateLayout
	if layout == "" {
		layout = schema.DefaultDateLayout
	}
	date := series.StaticLabel
	if !s.Time.IsZero() {
		date = s.Time.Format(layout)
	}

	tmpl := rec.Export.ImageName
	if tmpl == "" {
		return []namedBands{{name: export.Sanitize(prefix(rec) + date), bands: s.Names()}}
	}
	tmpl = strings.ReplaceAll(tmpl, "{date}", date)
	if !strings.Contains(tmpl, "{band}") {
		return []namedBands{{name: export.Sanitize(tmpl), bands: s.Names()}}
	}
	out := make([]namedBands, 0, len(s.Names()))
	for _, b := range s.Names() {
		out = append(out, namedBands{name: export.Sanitize(strings.ReplaceAll(tmpl, "{band}", b)), bands: []string{b}})
	}
	return out
}

func tableName(rec schema.Recipe) string {
	if rec.Export.TableName != "" {
		return export.Sanitize(rec.Export.TableName)
	}
	return export.Sanitize(rec.Name + "_series")
}

func tableFormat(rec schema.Recipe) schema.ExportFormat {
	if rec.Export.TableFormat != "" {
		return rec.Export.TableFormat
	}
	return schema.CSVFormat
}

func changeName(rec schema.Recipe) string {
	if rec.Change != nil && rec.Change.ExportName != "" {
		return export.Sanitize(rec.Change.ExportName)
	}
	return export.Sanitize(rec.Name + "_change")
}

// preview renders layers and the chart. Failures are logged and never stop the run.
func (p *Plan) preview(ctx context.Context, r contract.Renderer, slices []*raster.Slice, result schema.SeriesResult) []string {
	style := *p.Recipe.Preview
	var out []string
	if style.Layers && style.Band != "" {
		for _, s := range slices {
			if !s.Has(style.Band) {
				logrus.Warnf("preview band %s missing from %s slice", style.Band, s.Dataset)
				continue
			}
			name := export.Sanitize(fmt.Sprintf("%s_%s_%s", p.Recipe.Name, style.Band, label(s.Time)))
			path, err := r.RenderLayer(ctx, s, style, name)
			if err != nil {
				logrus.Warnf("failed to render %s: %v", name, err)
				continue
			}
			out = append(out, path)
		}
	}
	if style.Chart && len(result.Columns) > 0 {
		name := export.Sanitize(p.Recipe.Name + "_chart")
		path, err := r.RenderChart(ctx, result, style, name)
		if err != nil {
			logrus.Warnf("failed to render %s: %v", name, err)
		} else {
			out = append(out, path)
		}
	}
	return out
}

func label(t time.Time) string {
	if t.IsZero() {
		return series.StaticLabel
	}
	return t.Format(schema.DefaultDateLayout)
}
