// Package raster holds the in-memory raster model shared by every pipeline stage.
package raster

import (
	"fmt"
	"math"
	"strings"

	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
)

// MetersPerDegree approximates one degree of arc on the WGS84 equator.
const MetersPerDegree = 111319.49

const gridTolerance = 1e-9

// GeoTransform maps cell indices to CRS coordinates for a north-up grid.
// OriginX/OriginY is the upper-left corner; rows advance southwards.
type GeoTransform struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// Grid is the georeferenced shape of a slice.
type Grid struct {
	Width     int
	Height    int
	Transform GeoTransform
	CRS       string
}

// GridFromBounds returns the smallest grid of the given pixel size covering b.
func GridFromBounds(b orb.Bound, pixel float64, crs string) Grid {
	w := int(math.Max(1, math.Ceil((b.Max[0]-b.Min[0])/pixel-gridTolerance)))
	h := int(math.Max(1, math.Ceil((b.Max[1]-b.Min[1])/pixel-gridTolerance)))
	return Grid{
		Width:  w,
		Height: h,
		Transform: GeoTransform{
			OriginX:     b.Min[0],
			OriginY:     b.Max[1],
			PixelWidth:  pixel,
			PixelHeight: pixel,
		},
		CRS: crs,
	}
}

// Len is the number of cells.
func (g Grid) Len() int { return g.Width * g.Height }

// Index returns the flat offset of a cell.
func (g Grid) Index(col, row int) int { return row*g.Width + col }

// CellCenter returns the CRS coordinate of the center of a cell.
func (g Grid) CellCenter(col, row int) (x, y float64) {
	x = g.Transform.OriginX + (float64(col)+0.5)*g.Transform.PixelWidth
	y = g.Transform.OriginY - (float64(row)+0.5)*g.Transform.PixelHeight
	return x, y
}

// CellAt returns the cell containing a CRS coordinate.
func (g Grid) CellAt(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor((x - g.Transform.OriginX) / g.Transform.PixelWidth))
	row = int(math.Floor((g.Transform.OriginY - y) / g.Transform.PixelHeight))
	if col < 0 || row < 0 || col >= g.Width || row >= g.Height {
		return 0, 0, false
	}
	return col, row, true
}

// Bound returns the extent covered by the grid.
func (g Grid) Bound() orb.Bound {
	minX := g.Transform.OriginX
	maxY := g.Transform.OriginY
	maxX := minX + float64(g.Width)*g.Transform.PixelWidth
	minY := maxY - float64(g.Height)*g.Transform.PixelHeight
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// Geographic reports whether the grid is in longitude/latitude degrees.
func (g Grid) Geographic() bool {
	return strings.EqualFold(g.CRS, schema.GeographicCRS)
}

// CellSizeMeters returns the width and height of a cell in meters at the given latitude.
// Projected grids are assumed to be in meters already.
func (g Grid) CellSizeMeters(lat float64) (float64, float64) {
	if !g.Geographic() {
		return g.Transform.PixelWidth, g.Transform.PixelHeight
	}
	w := g.Transform.PixelWidth * MetersPerDegree * math.Cos(lat*math.Pi/180)
	h := g.Transform.PixelHeight * MetersPerDegree
	return w, h
}

// NativeScale is the nominal cell size in meters at the grid center.
func (g Grid) NativeScale() float64 {
	c := g.Bound().Center()
	w, h := g.CellSizeMeters(c[1])
	return math.Max(w, h)
}

// Equal reports whether two grids are cell-for-cell identical.
func (g Grid) Equal(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height &&
		strings.EqualFold(g.CRS, o.CRS) &&
		near(g.Transform.OriginX, o.Transform.OriginX) &&
		near(g.Transform.OriginY, o.Transform.OriginY) &&
		near(g.Transform.PixelWidth, o.Transform.PixelWidth) &&
		near(g.Transform.PixelHeight, o.Transform.PixelHeight)
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d@%g %s (%g,%g)", g.Width, g.Height, g.Transform.PixelWidth, g.CRS, g.Transform.OriginX, g.Transform.OriginY)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= gridTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Window returns the cell range of g overlapping b. ok is false when they
// do not overlap.
func (g Grid) Window(b orb.Bound) (col, row, width, height int, ok bool) {
	t := g.Transform
	c0 := int(math.Floor((b.Min[0]-t.OriginX)/t.PixelWidth + gridTolerance))
	c1 := int(math.Ceil((b.Max[0]-t.OriginX)/t.PixelWidth - gridTolerance))
	r0 := int(math.Floor((t.OriginY-b.Max[1])/t.PixelHeight + gridTolerance))
	r1 := int(math.Ceil((t.OriginY-b.Min[1])/t.PixelHeight - gridTolerance))
	c0, r0 = max(c0, 0), max(r0, 0)
	c1, r1 = min(c1, g.Width), min(r1, g.Height)
	if c0 >= c1 || r0 >= r1 {
		return 0, 0, 0, 0, false
	}
	return c0, r0, c1 - c0, r1 - r0, true
}

// Sub returns the grid of a cell window.
func (g Grid) Sub(col, row, width, height int) Grid {
	out := g
	out.Width, out.Height = width, height
	out.Transform.OriginX = g.Transform.OriginX + float64(col)*g.Transform.PixelWidth
	out.Transform.OriginY = g.Transform.OriginY - float64(row)*g.Transform.PixelHeight
	return out
}
