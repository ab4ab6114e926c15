package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/internal/catalog"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testBBox = []float64{10, 0, 10.04, 0.04}
	testGrid = raster.Grid{
		Width:     4,
		Height:    4,
		Transform: raster.GeoTransform{OriginX: 10, OriginY: 0.04, PixelWidth: 0.01, PixelHeight: 0.01},
		CRS:       schema.GeographicCRS,
	}
	s1Props = map[string]string{"instrumentMode": "IW", "transmitterReceiverPolarisation": "VV,VH"}
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func builtin(t *testing.T, name string) schema.Recipe {
	t.Helper()
	rec, err := recipe.NewRegistry().Get(name)
	require.NoError(t, err)
	rec.BBox = testBBox
	return rec
}

func addScene(t *testing.T, c *catalog.Memory, dataset string, ts time.Time, band string, values []float64, props map[string]string) {
	t.Helper()
	s := raster.New(dataset, ts, testGrid)
	s, err := s.WithBand(band, values)
	require.NoError(t, err)
	for k, v := range props {
		s.Properties[k] = v
	}
	require.NoError(t, c.Add(s))
}

func fill(v float64) []float64 {
	out := make([]float64, testGrid.Len())
	for i := range out {
		out[i] = v
	}
	return out
}

func acceptingService() *contract.MockExportService {
	svc := &contract.MockExportService{}
	svc.On("Submit", mock.Anything, mock.Anything).Return(schema.JobHandle{ID: "job", Status: schema.JobQueued}, nil)
	return svc
}

func TestDescribePrecipitation(t *testing.T) {
	p, err := Describe(builtin(t, "precipitation"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-07-01", "2023-07-02", "2023-07-03", "2023-07-04"}, p.Labels())
	assert.Equal(t, []string{"daily_precipitation"}, p.Columns)
	assert.Equal(t, schema.MedianComposite, p.Composite)

	steps := p.Steps()
	assert.Contains(t, steps[0], "4 periods")
	assert.Contains(t, p.String(), "recipe precipitation")
	assert.Contains(t, steps[len(steps)-2], "CHIRPS_Daily_Precipitation_Time_Series_Inches.csv")
}

func TestDescribeOverridesAndStatic(t *testing.T) {
	rec := Overrides{End: "2023-07-06", Scale: 250, Folder: "out"}.Apply(builtin(t, "precipitation"))
	assert.Equal(t, 250.0, rec.Export.Scale)
	p, err := Describe(rec, nil)
	require.NoError(t, err)
	assert.Len(t, p.Periods, 5)

	static, err := Describe(builtin(t, "landcover"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"static"}, static.Labels())
	assert.Contains(t, static.Steps()[0], "static")
}

func TestDescribeErrors(t *testing.T) {
	rec := builtin(t, "precipitation")
	rec.BBox = nil
	_, err := Describe(rec, nil)
	assert.ErrorContains(t, err, "needs a region")

	rec = builtin(t, "precipitation")
	rec.End = rec.Start
	_, err = Describe(rec, nil)
	assert.Error(t, err)
}

func TestMaterializePrecipitation(t *testing.T) {
	c := catalog.NewMemory()
	for d := 1; d <= 5; d++ {
		addScene(t, c, recipe.ChirpsDaily, date(2023, 7, d), "precipitation", fill(25.4), nil)
	}
	rec := Overrides{End: "2023-07-06"}.Apply(builtin(t, "precipitation"))
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	svc := acceptingService()
	store := &contract.MockJobStore{}
	store.On("RecordJob", int64(7), mock.Anything).Return(nil)
	renderer := &contract.MockRenderer{}
	renderer.On("RenderLayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("layer.png", nil)
	renderer.On("RenderChart", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("chart.html", nil)

	var progress []int
	res, err := p.Materialize(context.Background(), Deps{
		Catalog:  c,
		Exports:  svc,
		Store:    store,
		Renderer: renderer,
		RunID:    7,
		Progress: func(done, _ int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	require.Len(t, res.Series.Records, 5)
	for _, r := range res.Series.Records {
		assert.Equal(t, "1.00", r.Get("daily_precipitation").Format(2), r.Label)
		assert.False(t, r.NoData)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)
	assert.Nil(t, res.Change)

	require.Len(t, res.Jobs, 6)
	assert.Equal(t, "Pr_2023-07-01", submittedName(svc, 0))
	assert.Equal(t, "CHIRPS_Daily_Precipitation_Time_Series_Inches", submittedName(svc, 5))
	store.AssertNumberOfCalls(t, "RecordJob", 6)
	assert.Len(t, res.Previews, 6)
	renderer.AssertNumberOfCalls(t, "RenderChart", 1)
}

func submittedName(svc *contract.MockExportService, i int) string {
	var submits []mock.Call
	for _, c := range svc.Calls {
		if c.Method == "Submit" {
			submits = append(submits, c)
		}
	}
	return submits[i].Arguments.Get(1).(contract.ExportJob).Name
}

func TestMaterializeSurfaceWaterNoChange(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 15), "VV", fill(-12), s1Props)
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 29), "VV", fill(-12), s1Props)
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 20), "VV", fill(-30), map[string]string{"instrumentMode": "EW"})

	rec := builtin(t, "surface-water")
	rec.Dates = []string{"2023-09-15", "2023-09-29"}
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	res, err := p.Materialize(context.Background(), Deps{Catalog: c})
	require.NoError(t, err)
	require.Len(t, res.Series.Records, 2)
	assert.Equal(t, "2023-09-15", res.Series.Records[0].Label)
	assert.Equal(t, -12.0, res.Series.Records[0].Get("vv_mean").Value, "EW scene is filtered out")
	assert.Equal(t, 0.0, res.Series.Records[1].Get("flooded_pixel_count").Value)

	require.NotNil(t, res.Change)
	assert.True(t, res.Change.AreaKm2.Valid)
	assert.Equal(t, 0.0, res.Change.AreaKm2.Value)
	assert.Nil(t, res.Driver, "no export service configured")
}

func TestMaterializeSurfaceWaterSentinel(t *testing.T) {
	c := catalog.NewMemory()
	flooded := fill(-10)
	for i := 0; i < 4; i++ {
		flooded[i] = -20
	}
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 15), "VV", fill(-10), s1Props)
	addScene(t, c, recipe.Sentinel1, date(2023, 11, 15), "VV", flooded, s1Props)

	rec := builtin(t, "surface-water")
	rec.Dates = []string{"2023-09-15", "2023-10-15", "2023-11-15"}
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	svc := acceptingService()
	res, err := p.Materialize(context.Background(), Deps{Catalog: c, Exports: svc})
	require.NoError(t, err)

	require.Len(t, res.Series.Records, 3)
	gap := res.Series.Records[1]
	assert.True(t, gap.NoData)
	assert.Equal(t, "NA", gap.Get("vv_mean").Format(2))
	assert.Equal(t, "NA", gap.Get("flooded_pixel_count").Format(2))
	assert.Equal(t, 4.0, res.Series.Records[2].Get("flooded_pixel_count").Value)

	require.NotNil(t, res.Change)
	assert.Equal(t, 4, res.Change.TrueCells)
	assert.InDelta(t, 4.956, res.Change.AreaKm2.Value, 0.01)

	require.Len(t, res.Jobs, 4, "the placeholder slice is exported too")
	assert.Equal(t, "S1_2023_10_15", submittedName(svc, 1))
	assert.Equal(t, "FloodChange", submittedName(svc, 3))
}

func TestMaterializeSentinelAtEndSkipsChangeArea(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 15), "VV", fill(-10), s1Props)

	rec := builtin(t, "surface-water")
	rec.Dates = []string{"2023-09-15", "2023-11-15"}
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	res, err := p.Materialize(context.Background(), Deps{Catalog: c})
	require.NoError(t, err)
	require.NotNil(t, res.Change)
	assert.False(t, res.Change.AreaKm2.Valid)
}

func TestMaterializeWithoutSentinelRecordsNoData(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 1), "precipitation", fill(2.54), nil)
	p, err := Describe(builtin(t, "precipitation"), nil)
	require.NoError(t, err)

	res, err := p.Materialize(context.Background(), Deps{Catalog: c})
	require.NoError(t, err)
	require.Len(t, res.Series.Records, 4)
	assert.Equal(t, "0.10", res.Series.Records[0].Get("daily_precipitation").Format(2))
	for _, r := range res.Series.Records[1:] {
		assert.True(t, r.NoData, r.Label)
	}
}

func TestMaterializeGapIsMissingNotZero(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 1), "precipitation", fill(2.54), nil)
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 3), "precipitation", fill(0), nil)
	p, err := Describe(builtin(t, "precipitation"), nil)
	require.NoError(t, err)

	res, err := p.Materialize(context.Background(), Deps{Catalog: c})
	require.NoError(t, err)
	require.Len(t, res.Series.Records, 4)

	gap, dry := res.Series.Records[1], res.Series.Records[2]
	assert.True(t, gap.NoData)
	assert.False(t, gap.Get("daily_precipitation").Valid)
	assert.Equal(t, "NA", gap.Get("daily_precipitation").Format(2))
	assert.False(t, dry.NoData)
	assert.Equal(t, "0.00", dry.Get("daily_precipitation").Format(2))
}

func TestMaterializeEmptyWindowFails(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.ChirpsDaily, date(2023, 6, 1), "precipitation", fill(1), nil)
	p, err := Describe(builtin(t, "precipitation"), nil)
	require.NoError(t, err)

	svc := &contract.MockExportService{}
	_, err = p.Materialize(context.Background(), Deps{Catalog: c, Exports: svc})
	require.ErrorIs(t, err, schema.ErrNoMatchingData)
	var nm *schema.NoMatchingDataError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, recipe.ChirpsDaily, nm.Dataset)
	assert.Equal(t, date(2023, 7, 1), nm.Start)
	assert.Equal(t, date(2023, 7, 5), nm.End)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestMaterializeEmptyWindowWithSentinelSucceeds(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.Sentinel1, date(2023, 6, 1), "VV", fill(-10), s1Props)
	rec := builtin(t, "surface-water")
	rec.Dates = []string{"2023-09-15", "2023-10-15"}
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	res, err := p.Materialize(context.Background(), Deps{Catalog: c})
	require.NoError(t, err)
	for _, r := range res.Series.Records {
		assert.True(t, r.NoData, r.Label)
	}
	require.NotNil(t, res.Change)
	assert.False(t, res.Change.AreaKm2.Valid)
}

func TestMaterializeSentinelGoesThroughTransforms(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.Sentinel1, date(2023, 9, 15), "VV", fill(-10), s1Props)
	addScene(t, c, recipe.Sentinel1, date(2023, 11, 15), "VV", fill(-10), s1Props)

	rec := builtin(t, "surface-water")
	rec.Dates = []string{"2023-09-15", "2023-10-15", "2023-11-15"}
	rec.Transforms = append(append([]schema.TransformSpec(nil), rec.Transforms...),
		schema.TransformSpec{Op: "scale", Band: "VV", Output: "VV_smooth", Mul: 1})
	rec.Export.ImageName = "S1_{date}_{band}"
	style := *rec.Preview
	style.Band = "VV_smooth"
	rec.Preview = &style
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	svc := acceptingService()
	renderer := &contract.MockRenderer{}
	renderer.On("RenderLayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("layer.png", nil)
	res, err := p.Materialize(context.Background(), Deps{Catalog: c, Exports: svc, Renderer: renderer})
	require.NoError(t, err)

	assert.True(t, res.Series.Records[1].NoData)
	require.Len(t, res.Jobs, 7, "every slice exports both bands plus the change image")
	var names []string
	for i := range res.Jobs {
		names = append(names, submittedName(svc, i))
	}
	assert.Contains(t, names, "S1_2023_10_15_VV_smooth")
	renderer.AssertNumberOfCalls(t, "RenderLayer", 3)

	placeholder := renderer.Calls[1].Arguments.Get(1).(*raster.Slice)
	assert.True(t, placeholder.Sentinel)
	assert.True(t, placeholder.Has("VV_smooth"))
}

func TestMaterializeValidatesBeforeFetching(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 1), "rain", fill(1), nil)
	p, err := Describe(builtin(t, "precipitation"), nil)
	require.NoError(t, err)

	_, err = p.Materialize(context.Background(), Deps{Catalog: c})
	assert.ErrorIs(t, err, schema.ErrBandNotFound)

	_, err = p.Materialize(context.Background(), Deps{})
	assert.ErrorContains(t, err, "no catalog")
}

func TestMaterializeDuplicateExportsSubmitNothing(t *testing.T) {
	c := catalog.NewMemory()
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 1), "precipitation", fill(1), nil)
	addScene(t, c, recipe.ChirpsDaily, date(2023, 7, 2), "precipitation", fill(1), nil)
	rec := builtin(t, "precipitation")
	rec.Export.ImageName = "Pr_fixed"
	p, err := Describe(rec, nil)
	require.NoError(t, err)

	svc := &contract.MockExportService{}
	_, err = p.Materialize(context.Background(), Deps{Catalog: c, Exports: svc})
	assert.ErrorIs(t, err, schema.ErrDuplicateName)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestImageNames(t *testing.T) {
	rec := builtin(t, "elevation-slope")
	s := raster.Constant(rec.Dataset, time.Time{}, testGrid, []string{"elevation", "slope"}, 1)
	got := imageNames(rec, s)
	require.Len(t, got, 2)
	assert.Equal(t, "elevation_3dep", got[0].name)
	assert.Equal(t, []string{"slope"}, got[1].bands)
}
