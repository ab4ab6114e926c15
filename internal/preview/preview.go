// Package preview renders raster layers to PNG and series to HTML charts.
package preview

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"golang.org/x/image/colornames"
)

// MinSide is the smallest edge, in pixels, of a rendered layer. Small rasters
// are upscaled by an integer factor so cells stay visible.
const MinSide = 256

var defaultPalette = []string{"black", "white"}

// Renderer writes previews into a directory.
type Renderer struct {
	dir string
}

var _ contract.Renderer = &Renderer{} // Compile-time check

// New returns a Renderer writing into dir.
func New(dir string) *Renderer {
	return &Renderer{dir: dir}
}

func (r *Renderer) path(name, ext string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create preview folder: %w", err)
	}
	return filepath.Join(r.dir, name+ext), nil
}

// RenderLayer implements the Renderer interface. Values are stretched between
// style.Min and style.Max over the palette; masked cells stay transparent.
func (r *Renderer) RenderLayer(ctx context.Context, s *raster.Slice, style schema.PreviewSpec, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	values, err := s.Band(style.Band)
	if err != nil {
		return "", err
	}
	ramp, err := ParsePalette(style.Palette)
	if err != nil {
		return "", err
	}

	w, h := s.Grid.Width, s.Grid.Height
	k := max(1, MinSide/max(w, h, 1))
	dc := gg.NewContext(w*k, h*k)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			v := values[s.Grid.Index(col, row)]
			if raster.IsMasked(v) {
				continue
			}
			dc.SetColor(ramp.At(normalize(v, style.Min, style.Max)))
			dc.DrawRectangle(float64(col*k), float64(row*k), float64(k), float64(k))
			dc.Fill()
		}
	}

	path, err := r.path(name, ".png")
	if err != nil {
		return "", err
	}
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
}

// RenderChart implements the Renderer interface with one line per column.
// Missing values leave gaps.
func (r *Renderer) RenderChart(ctx context.Context, result schema.SeriesResult, style schema.PreviewSpec, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title := style.Title
	if title == "" {
		title = result.Recipe
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: result.Dataset}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(len(result.Columns) > 1)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: strings.Join(result.Columns, ", "), NameLocation: "middle", NameGap: 45}),
	)

	labels := make([]string, len(result.Records))
	for i, rec := range result.Records {
		labels[i] = rec.Label
	}
	line.SetXAxis(labels)
	for _, col := range result.Columns {
		data := make([]opts.LineData, len(result.Records))
		for i, rec := range result.Records {
			if m := rec.Get(col); m.Valid {
				data[i] = opts.LineData{Value: m.Value}
			} else {
				data[i] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(col, data, charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)}))
	}

	path, err := r.path(name, ".html")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := line.Render(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return path, f.Close()
}

// Ramp is an ordered list of colors interpolated linearly.
type Ramp []color.RGBA

// At returns the color at position t in [0, 1].
func (r Ramp) At(t float64) color.RGBA {
	if len(r) == 1 {
		return r[0]
	}
	pos := t * float64(len(r)-1)
	i := int(math.Floor(pos))
	if i >= len(r)-1 {
		return r[len(r)-1]
	}
	f := pos - float64(i)
	a, b := r[i], r[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + f*(float64(y)-float64(x)))) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// ParsePalette accepts CSS color names and hex strings with or without a
// leading '#'. An empty palette is black to white.
func ParsePalette(names []string) (Ramp, error) {
	if len(names) == 0 {
		names = defaultPalette
	}
	out := make(Ramp, 0, len(names))
	for _, n := range names {
		c, err := parseColor(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid palette color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid palette color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
