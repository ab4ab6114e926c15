package change

import (
	"math"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/reduce"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm = "EPSG:32633"

var (
	before = time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC)
	after  = time.Date(2023, 9, 29, 0, 0, 0, 0, time.UTC)
	grid   = raster.GridFromBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{400, 400}}, 100, utm)
)

func vv(t *testing.T, ts time.Time, values []float64) *raster.Slice {
	t.Helper()
	s, err := raster.New("S1_GRD", ts, grid).WithBand("VV", values)
	require.NoError(t, err)
	return s
}

func whole(t *testing.T) *region.Region {
	t.Helper()
	r, err := region.New(grid.Bound(), utm)
	require.NoError(t, err)
	return r
}

func pair(t *testing.T) (*raster.Slice, *raster.Slice) {
	a := make([]float64, grid.Len())
	b := make([]float64, grid.Len())
	for i := range a {
		a[i] = -10
		b[i] = -12
	}
	// four cells dropped by more than 5 dB
	for _, i := range []int{0, 1, 4, 5} {
		b[i] = -20
	}
	a[15] = math.NaN()
	return vv(t, before, a), vv(t, after, b)
}

func TestDetect(t *testing.T) {
	a, b := pair(t)
	m, err := Detect(a, b, "VV", 5, schema.GreaterThan)
	require.NoError(t, err)

	assert.Equal(t, 4, m.Count())
	assert.Equal(t, True, m.Cells[0])
	assert.Equal(t, False, m.Cells[2])
	assert.Equal(t, Invalid, m.Cells[15])

	area, err := m.TrueArea(whole(t), reduce.Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.04, area.Value, 1e-9)

	coarse, err := m.TrueArea(whole(t), reduce.Options{Scale: 200})
	require.NoError(t, err)
	assert.InDelta(t, 0.04, coarse.Value, 1e-9)

	sum := m.Summarize(area, "")
	assert.Equal(t, "2023-09-15", sum.From)
	assert.Equal(t, "2023-09-29", sum.To)
	assert.Equal(t, 4, sum.TrueCells)
}

func TestTrueAreaCountsOnlyTrueCells(t *testing.T) {
	a, b := pair(t)
	av, _ := a.Band("VV")
	bv, _ := b.Band("VV")
	av, bv = append([]float64(nil), av...), append([]float64(nil), bv...)
	// the top-right block holds one true, one invalid and two false cells
	bv[2] = -20
	av[3] = math.NaN()
	m, err := Detect(vv(t, before, av), vv(t, after, bv), "VV", 5, schema.GreaterThan)
	require.NoError(t, err)
	require.Equal(t, 5, m.Count())

	for _, scale := range []float64{0, 200, 400} {
		area, err := m.TrueArea(whole(t), reduce.Options{Scale: scale})
		require.NoError(t, err)
		assert.InDelta(t, 0.05, area.Value, 1e-9, "scale %g", scale)
	}

	left, err := region.New(orb.Bound{Max: orb.Point{200, 400}}, utm)
	require.NoError(t, err)
	area, err := m.TrueArea(left, reduce.Options{Scale: 400})
	require.NoError(t, err)
	assert.InDelta(t, 0.04, area.Value, 1e-9, "cells outside the region do not count")

	empty, err := region.New(orb.Bound{Min: orb.Point{1000, 1000}, Max: orb.Point{1100, 1100}}, utm)
	require.NoError(t, err)
	area, err = m.TrueArea(empty, reduce.Options{})
	require.NoError(t, err)
	assert.False(t, area.Valid)
}

func TestDetectIdenticalIsAllFalse(t *testing.T) {
	a, _ := pair(t)
	m, err := Detect(a, a, "VV", 5, schema.GreaterThan)
	require.NoError(t, err)
	assert.Zero(t, m.Count())

	area, err := m.TrueArea(whole(t), reduce.Options{})
	require.NoError(t, err)
	assert.True(t, area.Valid)
	assert.Zero(t, area.Value)
}

func TestDetectAntisymmetric(t *testing.T) {
	a, b := pair(t)
	for _, threshold := range []float64{-3, 0, 2, 5, 9} {
		fwd, err := Detect(a, b, "VV", threshold, schema.GreaterThan)
		require.NoError(t, err)
		rev, err := Detect(b, a, "VV", -threshold, schema.LessThan)
		require.NoError(t, err)
		assert.Equal(t, fwd.Cells, rev.Cells)

		fa, err := fwd.TrueArea(whole(t), reduce.Options{})
		require.NoError(t, err)
		ra, err := rev.TrueArea(whole(t), reduce.Options{})
		require.NoError(t, err)
		assert.InDelta(t, fa.Value, ra.Value, 1e-12)
	}
}

func TestDifference(t *testing.T) {
	a, b := pair(t)
	d, err := Difference(a, b, "VV")
	require.NoError(t, err)
	v, _ := d.Band("VV")
	assert.Equal(t, 10.0, v[0])
	assert.Equal(t, 2.0, v[2])
	assert.True(t, math.IsNaN(v[15]))
	assert.Equal(t, after, d.Time)
}

func TestDetectErrors(t *testing.T) {
	a, _ := pair(t)
	other := grid
	other.Transform.OriginX = 50
	c, err := raster.New("S1_GRD", after, other).WithBand("VV", make([]float64, other.Len()))
	require.NoError(t, err)

	_, err = Detect(a, c, "VV", 5, schema.GreaterThan)
	assert.ErrorIs(t, err, schema.ErrGridMismatch)

	_, err = Detect(a, a, "VH", 5, schema.GreaterThan)
	assert.ErrorIs(t, err, schema.ErrBandNotFound)

	_, err = Detect(a, a, "VV", 5, "ge")
	assert.Error(t, err)

	m, err := Detect(a, a, "VV", 5, schema.GreaterThan)
	require.NoError(t, err)
	_, err = m.TrueArea(whole(t), reduce.Options{MaxCells: 4})
	assert.ErrorIs(t, err, schema.ErrCellBudgetExceeded)
}
