package source

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/dates"
	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testGrid = raster.Grid{
	Width:     2,
	Height:    1,
	Transform: raster.GeoTransform{OriginX: 0, OriginY: 1, PixelWidth: 1, PixelHeight: 1},
	CRS:       schema.GeographicCRS,
}

func day(d int) time.Time { return time.Date(2023, 9, d, 0, 0, 0, 0, time.UTC) }

func vvSlice(t *testing.T, ts time.Time, values ...float64) *raster.Slice {
	t.Helper()
	s, err := raster.New("S1_GRD", ts, testGrid).WithBand("VV", values)
	require.NoError(t, err)
	return s
}

func testRequest(t *testing.T) Request {
	t.Helper()
	r, err := region.FromBBox([]float64{0, 0, 2, 1})
	require.NoError(t, err)
	return Request{Datasets: []string{"S1_GRD"}, Bands: []string{"VV"}, Region: r}
}

func describeS1(c *contract.MockCatalog) {
	c.On("Describe", mock.Anything, "S1_GRD").Return(schema.DatasetInfo{
		Name: "S1_GRD", Bands: []string{"VV", "VH"}, CRS: schema.GeographicCRS, PixelSize: 1,
	}, nil)
}

func TestFetchPeriodMedianComposite(t *testing.T) {
	ctx := context.Background()
	c := &contract.MockCatalog{}
	describeS1(c)
	c.On("Query", ctx, mock.MatchedBy(func(q contract.CatalogQuery) bool {
		return q.Start.Equal(day(1)) && q.End.Equal(day(29))
	})).Return([]*raster.Slice{
		vvSlice(t, day(20), -12, math.NaN()),
		vvSlice(t, day(10), -10, -20),
		vvSlice(t, day(5), -14, -22),
	}, nil)

	req := testRequest(t)
	req.Padding = dates.Days(14)

	got, ok, err := New(c).FetchPeriod(ctx, req, dates.Period{Start: day(15), End: day(29)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, day(15), got.Time)
	assert.False(t, got.Sentinel)
	vv, err := got.Band("VV")
	require.NoError(t, err)
	assert.Equal(t, -12.0, vv[0])
	assert.Equal(t, -21.0, vv[1])
	c.AssertExpectations(t)
}

func TestCompositeIsOrderIndependent(t *testing.T) {
	a := vvSlice(t, day(1), 1, 5)
	b := vvSlice(t, day(2), 3, math.NaN())
	c := vvSlice(t, day(3), 2, 7)

	for _, kind := range []schema.Composite{schema.MedianComposite, schema.MeanComposite, schema.MinComposite, schema.MaxComposite} {
		x, err := Composite([]*raster.Slice{a, b, c}, kind, day(1))
		require.NoError(t, err)
		y, err := Composite([]*raster.Slice{c, a, b}, kind, day(1))
		require.NoError(t, err)
		xv, _ := x.Band("VV")
		yv, _ := y.Band("VV")
		assert.Equal(t, xv, yv, string(kind))
	}
}

func TestCompositeFirstAndMostRecent(t *testing.T) {
	a := vvSlice(t, day(1), 1, 1)
	b := vvSlice(t, day(9), 9, 9)

	first, err := Composite([]*raster.Slice{b, a}, schema.FirstComposite, day(15))
	require.NoError(t, err)
	v, _ := first.Band("VV")
	assert.Equal(t, 1.0, v[0])
	assert.Equal(t, day(15), first.Time)

	recent, err := Composite([]*raster.Slice{b, a}, schema.MostRecentComposite, day(15))
	require.NoError(t, err)
	v, _ = recent.Band("VV")
	assert.Equal(t, 9.0, v[0])
}

func TestCompositeRejectsMixedGrids(t *testing.T) {
	a := vvSlice(t, day(1), 1, 1)
	other := testGrid
	other.Transform.OriginX = 5
	b, err := raster.New("S1_GRD", day(2), other).WithBand("VV", []float64{1, 1})
	require.NoError(t, err)

	_, err = Composite([]*raster.Slice{a, b}, schema.MedianComposite, day(1))
	assert.True(t, errors.Is(err, schema.ErrGridMismatch))
}

func TestFetchPeriodEmptyIsNone(t *testing.T) {
	ctx := context.Background()
	c := &contract.MockCatalog{}
	describeS1(c)
	c.On("Query", ctx, mock.Anything).Return([]*raster.Slice{}, nil)

	got, ok, err := New(c).FetchPeriod(ctx, testRequest(t), dates.Period{Start: day(1), End: day(2)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestFetchUnknownBand(t *testing.T) {
	ctx := context.Background()
	c := &contract.MockCatalog{}
	describeS1(c)

	req := testRequest(t)
	req.Bands = []string{"HH"}
	_, _, err := New(c).FetchPeriod(ctx, req, dates.Period{Start: day(1), End: day(2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrBandNotFound))
	c.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestWithSentinel(t *testing.T) {
	ctx := context.Background()
	c := &contract.MockCatalog{}
	describeS1(c)
	c.On("Query", ctx, mock.Anything).Return([]*raster.Slice{}, nil)
	c.On("Grid", ctx, "S1_GRD", mock.Anything).Return(testGrid, nil)

	f := WithSentinel(New(c), c, schema.DefaultSentinelFill)
	got, ok, err := f.FetchPeriod(ctx, testRequest(t), dates.Period{Start: day(29), End: day(30)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Sentinel)
	assert.Equal(t, day(29), got.Time)
	assert.Equal(t, []string{"VV"}, got.Names())
	vv, _ := got.Band("VV")
	assert.Equal(t, []float64{-999, -999}, vv)
}

func TestWithSentinelPassesRealData(t *testing.T) {
	ctx := context.Background()
	real := vvSlice(t, day(3), 1, 2)
	next := FetcherFunc(func(context.Context, Request, dates.Period) (*raster.Slice, bool, error) {
		return real, true, nil
	})
	c := &contract.MockCatalog{}

	got, ok, err := WithSentinel(next, c, -999).FetchPeriod(ctx, testRequest(t), dates.Period{Start: day(3), End: day(4)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, real, got)
	c.AssertNotCalled(t, "Grid", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	none := FetcherFunc(func(context.Context, Request, dates.Period) (*raster.Slice, bool, error) {
		return nil, false, nil
	})
	_, _, err := Require(none).FetchPeriod(ctx, testRequest(t), dates.Period{Start: day(1), End: day(2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrNoMatchingData))
}

func TestFetchPreparesEachScene(t *testing.T) {
	ctx := context.Background()
	c := &contract.MockCatalog{}
	describeS1(c)
	c.On("Query", ctx, mock.Anything).Return([]*raster.Slice{
		vvSlice(t, day(2), 1, 3),
		vvSlice(t, day(4), 5, 7),
	}, nil)

	req := testRequest(t)
	req.Composite = schema.MeanComposite
	req.Prepare = func(s *raster.Slice) (*raster.Slice, error) {
		v, _ := s.Band("VV")
		doubled := []float64{v[0] * 2, v[1] * 2}
		return s.WithBand("VV", doubled)
	}

	got, ok, err := New(c).FetchPeriod(ctx, req, dates.Period{Start: day(1), End: day(8)})
	require.NoError(t, err)
	require.True(t, ok)
	vv, _ := got.Band("VV")
	assert.Equal(t, []float64{6, 10}, vv)
}
