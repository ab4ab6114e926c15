package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/geoseries/core/raster"
	"github.com/huangsam/geoseries/core/region"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Pr_2023-09-15", FileName("Pr_", ts, ""))
	assert.Equal(t, "S1_2023_09_15", FileName("S1_", ts, "2006_01_02"))
	assert.Equal(t, "Temp_Sep_15_2023", FileName("Temp ", ts, "Jan/02/2006"))
	assert.Equal(t, "a_b", Sanitize("a: b"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName(".."))
	assert.False(t, ValidName("a/b"))
	assert.True(t, ValidName("Daily_Rainfall_2023-07-01"))
}

func image(t *testing.T) *raster.Slice {
	t.Helper()
	g := raster.GridFromBounds(orb.Bound{Max: orb.Point{1, 1}}, 0.1, schema.GeographicCRS)
	s, err := raster.New("CHIRPS", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), g).WithBand("precipitation", make([]float64, g.Len()))
	require.NoError(t, err)
	return s
}

func aoi(t *testing.T) *region.Region {
	t.Helper()
	r, err := region.FromBBox([]float64{0, 0, 1, 1})
	require.NoError(t, err)
	return r
}

func named(name string) any {
	return mock.MatchedBy(func(j contract.ExportJob) bool { return j.Name == name })
}

func TestValidate(t *testing.T) {
	img := image(t)
	table := &schema.SeriesResult{}

	tests := []struct {
		name string
		jobs []contract.ExportJob
		is   error
	}{
		{"duplicate", []contract.ExportJob{{Name: "a", Image: img}, {Name: "a", Image: img}}, schema.ErrDuplicateName},
		{"bad name", []contract.ExportJob{{Name: "a b", Image: img}}, schema.ErrInvalidName},
		{"bad folder", []contract.ExportJob{{Name: "a", Folder: "../x", Image: img}}, schema.ErrInvalidName},
		{"budget", []contract.ExportJob{{Name: "a", Image: img, Region: aoi(t), Params: schema.ExportParams{Scale: 5000, MaxCells: 10}}}, schema.ErrCellBudgetExceeded},
		{"image as csv", []contract.ExportJob{{Name: "a", Image: img, Params: schema.ExportParams{Format: schema.CSVFormat}}}, nil},
		{"table as tiff", []contract.ExportJob{{Name: "a", Table: table, Params: schema.ExportParams{Format: schema.GeoTIFFFormat}}}, nil},
		{"no payload", []contract.ExportJob{{Name: "a"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.jobs)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	assert.NoError(t, Validate([]contract.ExportJob{
		{Name: "a", Image: img},
		{Name: "a", Folder: "other", Image: img},
		{Name: "series", Table: table, Params: schema.ExportParams{Format: schema.ParquetFormat}},
	}))
}

func TestSubmitDuplicateSubmitsNothing(t *testing.T) {
	svc := &contract.MockExportService{}
	d := NewDriver(svc, nil, 0)

	_, err := d.Submit(context.Background(), []contract.ExportJob{
		{Name: "S1_2023_09_15", Image: image(t)},
		{Name: "S1_2023_09_15", Image: image(t)},
	})
	assert.ErrorIs(t, err, schema.ErrDuplicateName)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmitIsolatesRejections(t *testing.T) {
	ctx := context.Background()
	svc := &contract.MockExportService{}
	store := &contract.MockJobStore{}

	svc.On("Submit", ctx, named("first")).Return(schema.JobHandle{ID: "1", Name: "first", Status: schema.JobQueued}, nil)
	svc.On("Submit", ctx, named("second")).Return(schema.JobHandle{}, errors.New("quota exceeded"))
	svc.On("Submit", ctx, named("third")).Return(schema.JobHandle{ID: "3", Name: "third", Status: schema.JobQueued}, nil)
	store.On("RecordJob", int64(7), mock.Anything).Return(nil)

	d := NewDriver(svc, store, 7)
	handles, err := d.Submit(ctx, []contract.ExportJob{
		{Name: "first", Image: image(t)},
		{Name: "second", Image: image(t)},
		{Name: "third", Image: image(t)},
	})
	require.NoError(t, err)
	require.Len(t, handles, 3)

	assert.Equal(t, []string{"first", "second", "third"}, []string{handles[0].Name, handles[1].Name, handles[2].Name})
	assert.Equal(t, schema.JobQueued, handles[0].Status)
	assert.Equal(t, schema.JobRejected, handles[1].Status)
	assert.Equal(t, "quota exceeded", handles[1].Error)
	assert.Equal(t, schema.GeoTIFFFormat, handles[1].Format)
	assert.Equal(t, schema.JobQueued, handles[2].Status)

	store.AssertNumberOfCalls(t, "RecordJob", 3)
	svc.AssertExpectations(t)
}

func TestWaitRefreshesHandles(t *testing.T) {
	ctx := context.Background()
	svc := &contract.MockExportService{}
	store := &contract.MockJobStore{}

	svc.On("Submit", ctx, named("series")).Return(schema.JobHandle{ID: "1", Name: "series", Status: schema.JobQueued}, nil)
	svc.On("Wait", ctx).Return(nil)
	svc.On("Status", ctx, "1").Return(schema.JobHandle{ID: "1", Name: "series", Status: schema.JobCompleted, Path: "out/series.csv"}, nil)
	store.On("RecordJob", int64(1), mock.Anything).Return(nil)
	store.On("UpdateJob", "1", schema.JobCompleted, "", "out/series.csv").Return(nil)

	d := NewDriver(svc, store, 1)
	_, err := d.Submit(ctx, []contract.ExportJob{{Name: "series", Table: &schema.SeriesResult{}}})
	require.NoError(t, err)

	handles, err := d.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, schema.JobCompleted, handles[0].Status)
	assert.Equal(t, "out/series.csv", handles[0].Path)
	store.AssertExpectations(t)
}

func TestUnrecordedRunSkipsStore(t *testing.T) {
	ctx := context.Background()
	svc := &contract.MockExportService{}
	store := &contract.MockJobStore{}

	svc.On("Submit", ctx, named("series")).Return(schema.JobHandle{ID: "1", Name: "series", Status: schema.JobQueued}, nil)
	svc.On("Status", ctx, "1").Return(schema.JobHandle{ID: "1", Name: "series", Status: schema.JobCompleted}, nil)

	d := NewDriver(svc, store, 0)
	_, err := d.Submit(ctx, []contract.ExportJob{{Name: "series", Table: &schema.SeriesResult{}}})
	require.NoError(t, err)
	handles, err := d.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.JobCompleted, handles[0].Status)
	store.AssertNotCalled(t, "RecordJob", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
