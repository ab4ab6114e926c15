package raster

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() Grid {
	return Grid{
		Width:     3,
		Height:    2,
		Transform: GeoTransform{OriginX: 10, OriginY: 5, PixelWidth: 0.5, PixelHeight: 0.5},
		CRS:       schema.GeographicCRS,
	}
}

func TestGridGeometry(t *testing.T) {
	g := testGrid()
	assert.Equal(t, 6, g.Len())

	x, y := g.CellCenter(0, 0)
	assert.InDelta(t, 10.25, x, 1e-12)
	assert.InDelta(t, 4.75, y, 1e-12)

	col, row, ok := g.CellAt(11.4, 4.1)
	require.True(t, ok)
	assert.Equal(t, 2, col)
	assert.Equal(t, 1, row)

	_, _, ok = g.CellAt(9.9, 4.1)
	assert.False(t, ok)

	b := g.Bound()
	assert.Equal(t, orb.Point{10, 4}, b.Min)
	assert.Equal(t, orb.Point{11.5, 5}, b.Max)
}

func TestGridFromBounds(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 0.45}}
	g := GridFromBounds(b, 0.1, schema.GeographicCRS)
	assert.Equal(t, 10, g.Width)
	assert.Equal(t, 5, g.Height)
	assert.Equal(t, 0.45, g.Transform.OriginY)
}

func TestGridEqual(t *testing.T) {
	a := testGrid()
	b := testGrid()
	assert.True(t, a.Equal(b))

	b.Transform.OriginX += 0.5
	assert.False(t, a.Equal(b))

	c := testGrid()
	c.CRS = "EPSG:32633"
	assert.False(t, a.Equal(c))
}

func TestCellSizeMeters(t *testing.T) {
	g := testGrid()
	w, h := g.CellSizeMeters(60)
	assert.InDelta(t, 0.5*MetersPerDegree*0.5, w, 1e-6)
	assert.InDelta(t, 0.5*MetersPerDegree, h, 1e-6)

	g.CRS = "EPSG:32633"
	w, h = g.CellSizeMeters(60)
	assert.Equal(t, 0.5, w)
	assert.Equal(t, 0.5, h)
}

func TestSliceImmutability(t *testing.T) {
	ts := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	s := New("chirps", ts, testGrid())
	s, err := s.WithBand("precipitation", []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	renamed, err := s.Rename("precipitation", "pr")
	require.NoError(t, err)
	assert.Equal(t, []string{"precipitation"}, s.Names())
	assert.Equal(t, []string{"pr"}, renamed.Names())

	withExtra, err := s.WithBand("qa", make([]float64, 6))
	require.NoError(t, err)
	assert.Len(t, s.Names(), 1)
	assert.Len(t, withExtra.Names(), 2)

	dropped := withExtra.Without("qa")
	assert.Equal(t, []string{"precipitation"}, dropped.Names())
	assert.True(t, withExtra.Has("qa"))

	retimed := s.WithTime(ts.AddDate(0, 0, 1))
	assert.Equal(t, ts, s.Time)
	assert.Equal(t, ts.AddDate(0, 0, 1), retimed.Time)
}

func TestSliceBandErrors(t *testing.T) {
	s := New("chirps", time.Time{}, testGrid())

	_, err := s.Band("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrBandNotFound))

	_, err = s.Select("missing")
	assert.True(t, errors.Is(err, schema.ErrBandNotFound))

	_, err = s.WithBand("short", []float64{1})
	assert.Error(t, err)
}

func TestConstantAndMaskedFraction(t *testing.T) {
	s := Constant("s1", time.Time{}, testGrid(), []string{"VV"}, schema.DefaultSentinelFill)
	data, err := s.Band("VV")
	require.NoError(t, err)
	for _, v := range data {
		assert.Equal(t, -999.0, v)
	}

	masked, err := s.WithBand("m", []float64{math.NaN(), 1, math.NaN(), 1, 1, 1})
	require.NoError(t, err)
	frac, err := masked.MaskedFraction("m")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, frac, 1e-12)
}

func TestCrop(t *testing.T) {
	s, err := New("DEM", time.Time{}, testGrid()).WithBand("elevation", []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	out, ok := s.Crop(orb.Bound{Min: orb.Point{10.5, 4.5}, Max: orb.Point{11.5, 5}})
	require.True(t, ok)
	assert.Equal(t, 2, out.Grid.Width)
	assert.Equal(t, 1, out.Grid.Height)
	assert.InDelta(t, 10.5, out.Grid.Transform.OriginX, 1e-12)
	v, _ := out.Band("elevation")
	assert.Equal(t, []float64{2, 3}, v)

	same, ok := s.Crop(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 20}})
	require.True(t, ok)
	assert.Same(t, s, same)

	_, ok = s.Crop(orb.Bound{Min: orb.Point{50, 50}, Max: orb.Point{51, 51}})
	assert.False(t, ok)
}
