// Package recipe holds the built-in series recipes and validates custom ones.
package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/core/transform"
	"github.com/huangsam/geoseries/schema"
)

// Registry maps recipe names to recipes.
type Registry struct {
	recipes map[string]schema.Recipe
}

// NewRegistry returns a registry holding every built-in recipe.
func NewRegistry() *Registry {
	r := &Registry{recipes: map[string]schema.Recipe{}}
	for _, rec := range builtins() {
		r.recipes[rec.Name] = rec
	}
	return r
}

// Get returns a copy of the named recipe.
func (r *Registry) Get(name string) (schema.Recipe, error) {
	rec, ok := r.recipes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return schema.Recipe{}, fmt.Errorf("unknown recipe %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return rec, nil
}

// Names returns every recipe name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every recipe sorted by name.
func (r *Registry) All() []schema.Recipe {
	out := make([]schema.Recipe, 0, len(r.recipes))
	for _, name := range r.Names() {
		out = append(out, r.recipes[name])
	}
	return out
}

// Add validates and registers a recipe, replacing any with the same name.
func (r *Registry) Add(rec schema.Recipe) error {
	rec.Name = strings.ToLower(strings.TrimSpace(rec.Name))
	if err := Validate(rec); err != nil {
		return err
	}
	r.recipes[rec.Name] = rec
	return nil
}

// Apply merges raw config entries into the registry. An entry whose name
// matches an existing recipe overrides only the fields it sets; any other
// entry is decoded as a new recipe.
func (r *Registry) Apply(entries []map[string]any) error {
	for i, entry := range entries {
		name, _ := entry["name"].(string)
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("recipe entry %d has no name", i+1)
		}
		base, exists := r.recipes[strings.ToLower(strings.TrimSpace(name))]
		if !exists {
			base = schema.Recipe{}
		}
		if err := decode(entry, &base); err != nil {
			return fmt.Errorf("failed to decode recipe %q: %w", name, err)
		}
		if err := r.Add(base); err != nil {
			return fmt.Errorf("invalid recipe %q: %w", name, err)
		}
	}
	return nil
}

func decode(input map[string]any, out *schema.Recipe) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Validate checks a recipe without touching any data.
func Validate(rec schema.Recipe) error {
	if rec.Name == "" {
		return fmt.Errorf("recipe has no name")
	}
	if rec.Dataset == "" {
		return fmt.Errorf("recipe %q has no dataset", rec.Name)
	}
	if len(rec.Bands) == 0 {
		return fmt.Errorf("recipe %q selects no bands", rec.Name)
	}
	if rec.Composite != "" {
		if _, ok := schema.ValidComposites[schema.Composite(rec.Composite)]; !ok {
			return fmt.Errorf("recipe %q: unsupported composite %q", rec.Name, rec.Composite)
		}
	}

	switch {
	case rec.Static:
		if len(rec.Dates) > 0 || rec.Start != "" {
			return fmt.Errorf("recipe %q: a static recipe takes no dates", rec.Name)
		}
	case len(rec.Dates) > 0:
		if _, err := dates.Explicit(rec.Dates); err != nil {
			return err
		}
		if _, err := dates.ParseStep(rec.Step); err != nil {
			return err
		}
	default:
		if rec.Start == "" || rec.End == "" {
			return fmt.Errorf("recipe %q needs start and end, dates, or static", rec.Name)
		}
		if _, err := dates.ParseStep(rec.Step); err != nil {
			return err
		}
	}
	if rec.Padding != "" {
		if _, err := dates.ParseStep(rec.Padding); err != nil {
			return err
		}
	}
	if len(rec.BBox) != 0 && len(rec.BBox) != 4 {
		return fmt.Errorf("recipe %q: bbox needs 4 numbers", rec.Name)
	}

	if _, err := transform.Build(rec.Prepare); err != nil {
		return fmt.Errorf("recipe %q prepare: %w", rec.Name, err)
	}
	if _, err := transform.Build(rec.Transforms); err != nil {
		return fmt.Errorf("recipe %q: %w", rec.Name, err)
	}

	if len(rec.Statistics) == 0 && !rec.Export.Images && rec.Change == nil {
		return fmt.Errorf("recipe %q computes and exports nothing", rec.Name)
	}
	seen := map[string]struct{}{}
	for _, st := range rec.Statistics {
		if _, ok := schema.ValidStatistics[st.Stat]; !ok {
			return fmt.Errorf("recipe %q: unsupported statistic %q", rec.Name, st.Stat)
		}
		if st.Band == "" {
			return fmt.Errorf("recipe %q: statistic %q has no band", rec.Name, st.Stat)
		}
		key := reduce.ColumnName(st)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("recipe %q: statistic %q defined twice", rec.Name, key)
		}
		seen[key] = struct{}{}
	}

	if c := rec.Change; c != nil {
		if c.Band == "" {
			return fmt.Errorf("recipe %q: change detection needs a band", rec.Name)
		}
		if _, ok := schema.ValidComparisons[c.Comparison]; !ok {
			return fmt.Errorf("recipe %q: unsupported comparison %q", rec.Name, c.Comparison)
		}
	}
	if rec.Export.Table {
		if f := rec.Export.TableFormat; f != "" && !f.IsTabular() {
			return fmt.Errorf("recipe %q: table format %q is not tabular", rec.Name, f)
		}
		if len(rec.Statistics) == 0 {
			return fmt.Errorf("recipe %q exports a table but computes no statistics", rec.Name)
		}
	}
	return nil
}

// Columns returns the series columns of a recipe in declaration order.
func Columns(rec schema.Recipe) []string {
	out := make([]string, 0, len(rec.Statistics))
	for _, st := range rec.Statistics {
		out = append(out, reduce.ColumnName(st))
	}
	return out
}
