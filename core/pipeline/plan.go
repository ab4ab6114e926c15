// Package pipeline wires the series stages into a two-phase run: Describe
// builds a plan without touching data, Materialize executes it.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/core/series"
	"github.com/huangsam/geoseries/core/transform"
	"github.com/huangsam/geoseries/schema"
)

// endOfTime closes the single period of a static recipe.
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Overrides replace recipe fields from the command line.
type Overrides struct {
	Start    string
	End      string
	Step     string
	Scale    float64
	MaxCells int64
	Folder   string
	BBox     []float64
}

// Apply returns rec with every non-zero override applied.
func (o Overrides) Apply(rec schema.Recipe) schema.Recipe {
	if o.Start != "" || o.End != "" {
		rec.Dates = nil
	}
	if o.Start != "" {
		rec.Start = o.Start
	}
	if o.End != "" {
		rec.End = o.End
	}
	if o.Step != "" {
		rec.Step = o.Step
	}
	if o.Scale > 0 {
		rec.Scale = o.Scale
		rec.Export.Scale = o.Scale
	}
	if o.MaxCells > 0 {
		rec.MaxCells = o.MaxCells
		rec.Export.MaxCells = o.MaxCells
	}
	if o.Folder != "" {
		rec.Export.Folder = o.Folder
	}
	if len(o.BBox) > 0 {
		rec.BBox = o.BBox
	}
	return rec
}

// Plan is a validated, data-free description of a run.
type Plan struct {
	Recipe    schema.Recipe
	Region    *region.Region
	Periods   []dates.Period
	Step      dates.Step
	Padding   dates.Step
	Columns   []string
	Composite schema.Composite

	prepare   transform.Func
	transform transform.Func
	assembler series.Assembler
}

// Describe validates rec, expands its dates and resolves its transforms.
// r may be nil when the recipe carries a bbox.
func Describe(rec schema.Recipe, r *region.Region) (*Plan, error) {
	if err := recipe.Validate(rec); err != nil {
		return nil, err
	}
	if r == nil {
		if len(rec.BBox) == 0 {
			return nil, fmt.Errorf("recipe %q needs a region", rec.Name)
		}
		var err error
		if r, err = region.FromBBox(rec.BBox); err != nil {
			return nil, err
		}
	}

	p := &Plan{
		Recipe:    rec,
		Region:    r,
		Columns:   recipe.Columns(rec),
		Composite: schema.Composite(rec.Composite),
		assembler: series.Assembler{Layout: schema.DefaultDateLayout, Columns: recipe.Columns(rec)},
	}
	if p.Composite == "" {
		p.Composite = schema.MedianComposite
	}

	var err error
	if p.Periods, p.Step, err = expand(rec); err != nil {
		return nil, err
	}
	if rec.Padding != "" {
		if p.Padding, err = dates.ParseStep(rec.Padding); err != nil {
			return nil, err
		}
	}
	if len(rec.Prepare) > 0 {
		if p.prepare, err = transform.Build(rec.Prepare); err != nil {
			return nil, err
		}
	}
	if p.transform, err = transform.Build(rec.Transforms); err != nil {
		return nil, err
	}
	return p, nil
}

func expand(rec schema.Recipe) ([]dates.Period, dates.Step, error) {
	if rec.Static {
		return []dates.Period{{End: endOfTime}}, dates.Step{}, nil
	}
	step, err := dates.ParseStep(rec.Step)
	if err != nil {
		return nil, step, err
	}
	if len(rec.Dates) > 0 {
		b, err := dates.Explicit(rec.Dates)
		if err != nil {
			return nil, step, err
		}
		return dates.Windows(b, step, time.Time{}), step, nil
	}
	start, err := dates.ParseDate(rec.Start)
	if err != nil {
		return nil, step, err
	}
	end, err := dates.ParseDate(rec.End)
	if err != nil {
		return nil, step, err
	}
	b, err := dates.Expand(start, end, step)
	if err != nil {
		return nil, step, err
	}
	return dates.Windows(b, step, end), step, nil
}

// Datasets returns the primary dataset followed by any merged ones.
func (p *Plan) Datasets() []string {
	return append([]string{p.Recipe.Dataset}, p.Recipe.Merge...)
}

// Labels returns the record label of every period.
func (p *Plan) Labels() []string {
	out := make([]string, len(p.Periods))
	for i, period := range p.Periods {
		out[i] = p.assembler.Label(period)
	}
	return out
}

// Steps renders the plan as an ordered list of human readable steps.
func (p *Plan) Steps() []string {
	rec := p.Recipe
	var steps []string

	switch {
	case rec.Static:
		steps = append(steps, "single static period")
	case len(rec.Dates) > 0:
		steps = append(steps, fmt.Sprintf("dates %s -> %d periods", strings.Join(rec.Dates, ", "), len(p.Periods)))
	default:
		steps = append(steps, fmt.Sprintf("expand %s..%s every %s -> %d periods", rec.Start, rec.End, p.Step, len(p.Periods)))
	}

	fetch := fmt.Sprintf("fetch %s from %s (%s composite", strings.Join(rec.Bands, ", "), strings.Join(p.Datasets(), " + "), p.Composite)
	if p.Padding.Count > 0 {
		fetch += fmt.Sprintf(", window +/-%s", p.Padding)
	}
	if len(rec.Filters) > 0 {
		fs := make([]string, len(rec.Filters))
		for i, f := range rec.Filters {
			fs[i] = fmt.Sprintf("%s %s %s", f.Property, f.Op, f.Value)
		}
		fetch += ", where " + strings.Join(fs, " and ")
	}
	if rec.Sentinel {
		fetch += fmt.Sprintf(", fill %g when empty", rec.SentinelFill)
	}
	steps = append(steps, fetch+")")

	if len(rec.Prepare) > 0 {
		steps = append(steps, "per scene: "+describeAll(rec.Prepare))
	}
	if len(rec.Transforms) > 0 {
		steps = append(steps, "transform: "+describeAll(rec.Transforms))
	}
	if len(rec.Statistics) > 0 {
		stats := make([]string, len(rec.Statistics))
		for i, st := range rec.Statistics {
			stats[i] = fmt.Sprintf("%s = %s(%s)", p.Columns[i], st.Stat, st.Band)
		}
		steps = append(steps, fmt.Sprintf("reduce over %s at %s: %s", p.Region, scaleText(rec.Scale), strings.Join(stats, ", ")))
	}
	if c := rec.Change; c != nil {
		steps = append(steps, fmt.Sprintf("change: first - last of %s %s %g", c.Band, c.Comparison, c.Threshold))
	}
	if ex := exportText(rec); ex != "" {
		steps = append(steps, ex)
	}
	if pv := rec.Preview; pv != nil && (pv.Layers || pv.Chart) {
		steps = append(steps, fmt.Sprintf("preview: layers=%t chart=%t", pv.Layers, pv.Chart))
	}
	return steps
}

func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "recipe %s: %s\n", p.Recipe.Name, p.Recipe.Description)
	for i, s := range p.Steps() {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, s)
	}
	return sb.String()
}

func describeAll(specs []schema.TransformSpec) string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = transform.Describe(s)
	}
	return strings.Join(out, " -> ")
}

func scaleText(scale float64) string {
	if scale <= 0 {
		return "native scale"
	}
	return fmt.Sprintf("%gm", scale)
}

func exportText(rec schema.Recipe) string {
	var parts []string
	if rec.Export.Images {
		parts = append(parts, "images "+imagePattern(rec))
	}
	if rec.Export.Table {
		parts = append(parts, "table "+tableName(rec)+tableFormat(rec).Extension())
	}
	if rec.Change != nil && rec.Change.Export {
		parts = append(parts, "change "+changeName(rec))
	}
	if len(parts) == 0 {
		return ""
	}
	folder := rec.Export.Folder
	if folder == "" {
		folder = "."
	}
	return fmt.Sprintf("export to %s: %s", folder, strings.Join(parts, ", "))
}
