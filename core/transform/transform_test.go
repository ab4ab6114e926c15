package transform

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geoGrid(w, h int) raster.Grid {
	return raster.Grid{
		Width:     w,
		Height:    h,
		Transform: raster.GeoTransform{OriginX: 0, OriginY: float64(h), PixelWidth: 1, PixelHeight: 1},
		CRS:       schema.GeographicCRS,
	}
}

func utmGrid(w, h int, pixel float64) raster.Grid {
	return raster.Grid{
		Width:     w,
		Height:    h,
		Transform: raster.GeoTransform{OriginX: 500000, OriginY: 4000000, PixelWidth: pixel, PixelHeight: pixel},
		CRS:       "EPSG:32633",
	}
}

func sliceWith(t *testing.T, g raster.Grid, bands map[string][]float64) *raster.Slice {
	t.Helper()
	s := raster.New("test", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), g)
	var err error
	for name, data := range bands {
		s, err = s.WithBand(name, data)
		require.NoError(t, err)
	}
	return s
}

func TestScaleIsInvertible(t *testing.T) {
	in := []float64{0, 25.4, math.NaN(), 100}
	s := sliceWith(t, geoGrid(4, 1), map[string][]float64{"precipitation": in})

	f := Chain(Scale("precipitation", MMToInches, 0), Unscale("precipitation", MMToInches, 0))
	out, err := f(s)
	require.NoError(t, err)

	got, err := out.Band("precipitation")
	require.NoError(t, err)
	for i := range in {
		if math.IsNaN(in[i]) {
			assert.True(t, math.IsNaN(got[i]))
			continue
		}
		assert.InDelta(t, in[i], got[i], 1e-9)
	}

	// Input untouched.
	orig, _ := s.Band("precipitation")
	assert.Equal(t, 25.4, orig[1])
}

func TestScaleToMMToInches(t *testing.T) {
	s := sliceWith(t, geoGrid(1, 1), map[string][]float64{"prcp": {25.4}})
	out, err := ScaleTo("prcp", "prcp_in", MMToInches, 0)(s)
	require.NoError(t, err)
	got, err := out.Band("prcp_in")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-4)
	assert.True(t, out.Has("prcp"))
}

func TestMaskBits(t *testing.T) {
	qa := []float64{0, 1 << 3, 1 << 4, 1 << 1, math.NaN()}
	s := sliceWith(t, geoGrid(5, 1), map[string][]float64{
		"QA_PIXEL": qa,
		"SR_B4":    {1, 2, 3, 4, 5},
	})
	out, err := MaskBits("QA_PIXEL", 3, 4)(s)
	require.NoError(t, err)

	assert.False(t, out.Has("QA_PIXEL"))
	got, err := out.Band("SR_B4")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 4.0, got[3])
	assert.True(t, math.IsNaN(got[4]))
}

func TestNormalizedDifference(t *testing.T) {
	s := sliceWith(t, geoGrid(3, 1), map[string][]float64{
		"nir": {0.5, 0, math.NaN()},
		"red": {0.1, 0, 0.2},
	})
	out, err := NormalizedDifference("nir", "red", "ndvi")(s)
	require.NoError(t, err)
	got, err := out.Band("ndvi")
	require.NoError(t, err)
	assert.InDelta(t, 0.4/0.6, got[0], 1e-12)
	assert.True(t, math.IsNaN(got[1]))
	assert.True(t, math.IsNaN(got[2]))
}

func TestLandSurfaceTemperature(t *testing.T) {
	s := sliceWith(t, geoGrid(2, 1), map[string][]float64{
		"ST_B10": {300, math.NaN()},
		"SR_B5":  {0.5, 0.5},
		"SR_B4":  {0.1, 0.1},
	})
	out, err := LandSurfaceTemperature(DefaultLSTParams())(s)
	require.NoError(t, err)
	got, err := out.Band("LST")
	require.NoError(t, err)
	assert.InDelta(t, 26.85, got[0], 0.01)
	assert.True(t, math.IsNaN(got[1]))
}

func TestFocalMedianRemovesSpeckle(t *testing.T) {
	data := make([]float64, 25)
	for i := range data {
		data[i] = -10
	}
	data[12] = 40 // single bright speckle in the middle
	data[0] = math.NaN()
	s := sliceWith(t, utmGrid(5, 5, 10), map[string][]float64{"VV": data})

	out, err := FocalMedian("VV", 15)(s)
	require.NoError(t, err)
	got, err := out.Band("VV")
	require.NoError(t, err)
	assert.Equal(t, -10.0, got[12])
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 40.0, data[12])
}

func TestSlopeOfInclinedPlane(t *testing.T) {
	const w, h = 5, 4
	z := make([]float64, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			z[row*w+col] = float64(col)
		}
	}
	s := sliceWith(t, utmGrid(w, h, 10), map[string][]float64{"elevation": z})
	out, err := Slope("elevation", "slope")(s)
	require.NoError(t, err)
	got, err := out.Band("slope")
	require.NoError(t, err)

	want := math.Atan(0.1) * 180 / math.Pi
	assert.InDelta(t, want, got[1*w+2], 1e-9)
	assert.True(t, out.Has("elevation"))
}

func TestClip(t *testing.T) {
	r, err := region.FromBBox([]float64{0, 0, 2, 2})
	require.NoError(t, err)
	s := sliceWith(t, geoGrid(3, 2), map[string][]float64{"b": {1, 2, 3, 4, 5, 6}})

	out, err := Clip(r)(s)
	require.NoError(t, err)
	got, err := out.Band("b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 5.0, got[4])
	assert.True(t, math.IsNaN(got[2]))
	assert.True(t, math.IsNaN(got[5]))
}

func TestTransformsReportMissingBand(t *testing.T) {
	s := sliceWith(t, geoGrid(1, 1), map[string][]float64{"b": {1}})
	for name, f := range map[string]Func{
		"scale": Scale("x", 1, 0),
		"mask":  MaskBits("x", 1),
		"nd":    NormalizedDifference("b", "x", "o"),
		"lst":   LandSurfaceTemperature(DefaultLSTParams()),
		"focal": FocalMedian("x", 10),
		"slope": Slope("x", "s"),
	} {
		_, err := f(s)
		assert.True(t, errors.Is(err, schema.ErrBandNotFound), name)
	}
}

func TestLookupAndBuild(t *testing.T) {
	f, err := Build([]schema.TransformSpec{
		{Op: OpMMToInches, Band: "precipitation"},
		{Op: OpRename, Band: "precipitation", Output: "pr"},
	})
	require.NoError(t, err)

	s := sliceWith(t, geoGrid(1, 1), map[string][]float64{"precipitation": {25.4}})
	out, err := f(s)
	require.NoError(t, err)
	got, err := out.Band("pr")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-4)

	_, err = Lookup(schema.TransformSpec{Op: "sharpen"})
	assert.Error(t, err)
	_, err = Lookup(schema.TransformSpec{Op: OpFocalMedian, Band: "VV"})
	assert.Error(t, err)
	_, err = Lookup(schema.TransformSpec{Op: OpNormalizedDifference, Bands: []string{"a"}})
	assert.Error(t, err)
	_, err = Build([]schema.TransformSpec{{Op: OpScale}})
	assert.ErrorContains(t, err, "transform 1")

	assert.Equal(t, "focal_median(VV, radius=100m)", Describe(schema.TransformSpec{Op: OpFocalMedian, Band: "VV", Radius: 100}))
}
